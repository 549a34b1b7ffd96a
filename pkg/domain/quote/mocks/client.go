package mocks

import (
	"context"
	"fmt"

	"github.com/NeuralTrust/QuoteGate/pkg/domain/quote"
	"github.com/stretchr/testify/mock"
)

type Client struct {
	mock.Mock
}

func (m *Client) Random(ctx context.Context) (*quote.Response, error) {
	args := m.Called(ctx)
	return response(args)
}

func (m *Client) Search(ctx context.Context, query string) (*quote.Response, error) {
	args := m.Called(ctx, query)
	return response(args)
}

func response(args mock.Arguments) (*quote.Response, error) {
	resp, ok := args.Get(0).(*quote.Response)
	if !ok && args.Get(0) != nil {
		return nil, fmt.Errorf("expected *quote.Response, got %T", args.Get(0))
	}
	return resp, args.Error(1)
}
