// Package formats assembles the adapter registry shipped with the server.
package formats

import (
	"github.com/modelhub/modelhub/pkg/adapter"
	"github.com/modelhub/modelhub/pkg/adapter/linear"
	"github.com/modelhub/modelhub/pkg/adapter/mlp"
	"github.com/modelhub/modelhub/pkg/adapter/tree"
)

func NewDefaultRegistry() (*adapter.Registry, error) {
	return adapter.NewRegistry(
		linear.NewJSONAdapter(),
		linear.NewProtobufAdapter(),
		tree.NewJSONAdapter(),
		mlp.NewYAMLAdapter(),
	)
}
