// Package testutil provides small helpers used only by tests.
//
// StubModelBuilder assembles a model.MockModel whose replies are keyed by
// agent id instead of raw instruction text, so tests can script a pipeline
// run stage by stage:
//
//	m := testutil.NewStubModel(registry).
//	    Reply(agent.Discovery, "ideas").
//	    Fail(agent.Design, errors.New("boom")).
//	    Build()
package testutil
