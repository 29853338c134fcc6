// Package config exposes the default on-disk configuration store.
package config

import (
	"github.com/tauraamui/bgblur/internal/config"
	"github.com/tauraamui/bgblur/pkg/configdef"
)

func DefaultResolver() configdef.Resolver {
	return config.DefaultResolver()
}

func DefaultCreator() configdef.Creator {
	return config.DefaultCreator()
}

func DefaultDestroyer() configdef.Destroyer {
	return config.DefaultDestroyer()
}

func DefaultCreateResolver() configdef.CreateResolver {
	return config.DefaultCreateResolver()
}
