//go:build !libalpm

package alpm

import (
	"github.com/git-pkgs/alpm/engine"
	"github.com/git-pkgs/alpm/engine/memdb"
)

var (
	defaultOpener engine.Opener = memdb.Open
	defaultVerCmp               = memdb.VerCmp
)
