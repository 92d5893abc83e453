//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chatline/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself.
// Supervision (restart on panic) is the supervisor's job.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// for logging and supervision purposes. Avoids manual naming in the
// Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives collection change events. A websocket connection
// is one sink; tests use in-memory sinks.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

type IRegistry interface {
	Subscribe(subscriberID string, collections []event.Collection, sink EventSink)
	Unsubscribe(subscriberID string)
	SinksFor(collection event.Collection) []EventSink
}
