// Package envscope runs a function with selected environment variables
// temporarily removed from the process environment. The process environment
// is shared by every goroutine, so all scopes are serialized by one mutex and
// the previous values are restored on return, error and panic alike.
package envscope

import (
	"os"
	"sync"
)

// ProxyVars lists the proxy related variables inherited by HTTP clients.
var ProxyVars = []string{
	"HTTP_PROXY", "HTTPS_PROXY", "ALL_PROXY",
	"http_proxy", "https_proxy", "all_proxy",
}

var mu sync.Mutex

// WithoutProxy runs fn with ProxyVars cleared.
func WithoutProxy(fn func() error) error {
	return Without(ProxyVars, fn)
}

// Without runs fn with vars unset and restores whatever was present before.
// Variables that were absent stay absent.
func Without(vars []string, fn func() error) error {
	mu.Lock()
	defer mu.Unlock()

	saved := make(map[string]string, len(vars))
	defer func() {
		for k, v := range saved {
			_ = os.Setenv(k, v)
		}
	}()

	for _, name := range vars {
		val, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		saved[name] = val
		if err := os.Unsetenv(name); err != nil {
			return err
		}
	}

	return fn()
}
