package provider

import (
	"context"
)

// Provider is the SMS transport boundary.
type Provider interface {
	Send(ctx context.Context, to, body string) (providerMsgID string, err error)
}
