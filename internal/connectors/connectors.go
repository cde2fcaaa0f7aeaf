// Package connectors defines the transport contract the runtime
// composes over.
package connectors

import "context"

type Connector interface {
	Name() string
	Start(ctx context.Context) error
}
