// Package di contains dependency injection tokens for the execution context.
package di

import (
	"github.com/sumitrevolt/flasharb/business/execution/app"
	"github.com/sumitrevolt/flasharb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Orchestrator = di.NewToken[*app.Orchestrator]("execution.Orchestrator")
	Tracker      = di.NewToken[*app.Tracker]("execution.Tracker")
)

// Private dependency tokens - internal to execution module
var (
	Encoders     = di.NewToken[[]app.PlanEncoder]("execution:encoders")
	Builder      = di.NewToken[*app.Builder]("execution:builder")
	Sender       = di.NewToken[*app.Sender]("execution:sender")
	Waiter       = di.NewToken[*app.Waiter]("execution:waiter")
	Classifier   = di.NewToken[*app.Classifier]("execution:classifier")
	HistoryStore = di.NewToken[app.HistoryStore]("execution:historyStore")
	Reporters    = di.NewToken[[]app.Reporter]("execution:reporters")
)

// Helper functions for type-safe access
func GetOrchestrator(c di.ServiceRegistry) *app.Orchestrator {
	return di.GetToken(c, Orchestrator)
}

func GetTracker(c di.ServiceRegistry) *app.Tracker {
	return di.GetToken(c, Tracker)
}

func GetEncoders(c di.ServiceRegistry) []app.PlanEncoder {
	return di.GetToken(c, Encoders)
}

func GetBuilder(c di.ServiceRegistry) *app.Builder {
	return di.GetToken(c, Builder)
}

func GetSender(c di.ServiceRegistry) *app.Sender {
	return di.GetToken(c, Sender)
}

func GetWaiter(c di.ServiceRegistry) *app.Waiter {
	return di.GetToken(c, Waiter)
}

func GetClassifier(c di.ServiceRegistry) *app.Classifier {
	return di.GetToken(c, Classifier)
}

func GetHistoryStore(c di.ServiceRegistry) app.HistoryStore {
	return di.GetToken(c, HistoryStore)
}

func GetReporters(c di.ServiceRegistry) []app.Reporter {
	return di.GetToken(c, Reporters)
}
