package mocks

import (
	"github.com/NeuralTrust/QuoteGate/pkg/infra/metrics/metric_events"
	"github.com/stretchr/testify/mock"
)

type Worker struct {
	mock.Mock
}

func (m *Worker) Shutdown() {
	m.Called()
}

func (m *Worker) StartWorkers(n int) {
	m.Called(n)
}

func (m *Worker) Process(evt *metric_events.Event) {
	m.Called(evt)
}
