package config

import "github.com/tauraamui/bgblur/pkg/configdef"

// fileStore resolves, creates and destroys the config file found by
// resolveConfigPath.
type fileStore struct{}

func (fileStore) Resolve() (configdef.Values, error) { return load() }

func (fileStore) Create() error { return create() }

func (fileStore) Destroy() error { return destroy() }

func DefaultResolver() configdef.Resolver { return fileStore{} }

func DefaultCreator() configdef.Creator { return fileStore{} }

func DefaultDestroyer() configdef.Destroyer { return fileStore{} }

func DefaultCreateResolver() configdef.CreateResolver { return fileStore{} }
