//go:build libalpm

package alpm

import (
	"github.com/git-pkgs/alpm/engine"
	"github.com/git-pkgs/alpm/engine/libalpm"
)

var (
	defaultOpener engine.Opener = libalpm.Open
	defaultVerCmp               = libalpm.VerCmp
)
