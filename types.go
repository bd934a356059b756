package alpm

import (
	"fmt"
	"strings"
)

// SigLevel is a bit set describing which signatures are required when
// reading a database or a package.
type SigLevel int

const (
	SigPackage           SigLevel = 1 << 0
	SigPackageOptional   SigLevel = 1 << 1
	SigPackageMarginalOk SigLevel = 1 << 2
	SigPackageUnknownOk  SigLevel = 1 << 3

	SigDatabase           SigLevel = 1 << 10
	SigDatabaseOptional   SigLevel = 1 << 11
	SigDatabaseMarginalOk SigLevel = 1 << 12
	SigDatabaseUnknownOk  SigLevel = 1 << 13

	SigUseDefault SigLevel = 1 << 30
)

var sigLevelNames = []flagName[SigLevel]{
	{SigPackage, "package"},
	{SigPackageOptional, "package-optional"},
	{SigPackageMarginalOk, "package-marginal-ok"},
	{SigPackageUnknownOk, "package-unknown-ok"},
	{SigDatabase, "database"},
	{SigDatabaseOptional, "database-optional"},
	{SigDatabaseMarginalOk, "database-marginal-ok"},
	{SigDatabaseUnknownOk, "database-unknown-ok"},
	{SigUseDefault, "use-default"},
}

func (s SigLevel) String() string { return formatFlags(s, sigLevelNames) }

// Unknown returns the bits of s that have no name.
func (s SigLevel) Unknown() SigLevel { return unknownFlags(s, sigLevelNames) }

// Usage is a bit set of the operations a sync database takes part in.
type Usage int

const (
	UsageSync    Usage = 1 << 0
	UsageSearch  Usage = 1 << 1
	UsageInstall Usage = 1 << 2
	UsageUpgrade Usage = 1 << 3
	UsageAll     Usage = 1<<4 - 1
)

var usageNames = []flagName[Usage]{
	{UsageSync, "sync"},
	{UsageSearch, "search"},
	{UsageInstall, "install"},
	{UsageUpgrade, "upgrade"},
}

func (u Usage) String() string { return formatFlags(u, usageNames) }

// Unknown returns the bits of u that have no name.
func (u Usage) Unknown() Usage { return unknownFlags(u, usageNames) }

// Validation is a bit set of the methods used to validate a package.
type Validation int

const (
	ValidationUnknown   Validation = 0
	ValidationNone      Validation = 1 << 0
	ValidationMD5Sum    Validation = 1 << 1
	ValidationSHA256Sum Validation = 1 << 2
	ValidationSignature Validation = 1 << 3
)

var validationNames = []flagName[Validation]{
	{ValidationNone, "none"},
	{ValidationMD5Sum, "md5"},
	{ValidationSHA256Sum, "sha256"},
	{ValidationSignature, "signature"},
}

func (v Validation) String() string {
	if v == ValidationUnknown {
		return "unknown"
	}
	return formatFlags(v, validationNames)
}

// Unknown returns the bits of v that have no name.
func (v Validation) Unknown() Validation { return unknownFlags(v, validationNames) }

type flagName[F ~int] struct {
	bit  F
	name string
}

func formatFlags[F ~int](f F, names []flagName[F]) string {
	var parts []string
	for _, n := range names {
		if f&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	if rest := unknownFlags(f, names); rest != 0 {
		parts = append(parts, fmt.Sprintf("%#x", int(rest)))
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, "|")
}

func unknownFlags[F ~int](f F, names []flagName[F]) F {
	for _, n := range names {
		f &^= n.bit
	}
	return f
}

// Origin tells where a package was loaded from. Values outside the named
// ones are kept as they are and reported by Known.
type Origin int

const (
	OriginFile    Origin = 1
	OriginLocalDB Origin = 2
	OriginSyncDB  Origin = 3
)

func (o Origin) Known() bool {
	return o >= OriginFile && o <= OriginSyncDB
}

func (o Origin) String() string {
	switch o {
	case OriginFile:
		return "file"
	case OriginLocalDB:
		return "localdb"
	case OriginSyncDB:
		return "syncdb"
	}
	return fmt.Sprintf("Origin(%d)", int(o))
}

// Reason is why a package was installed.
type Reason int

const (
	ReasonExplicit Reason = 0
	ReasonDepend   Reason = 1
)

func (r Reason) Known() bool {
	return r == ReasonExplicit || r == ReasonDepend
}

func (r Reason) String() string {
	switch r {
	case ReasonExplicit:
		return "explicit"
	case ReasonDepend:
		return "dependency"
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

// DepMod is the comparison a dependency applies to a version.
type DepMod int

const (
	DepModAny DepMod = iota + 1
	DepModEq
	DepModGe
	DepModLe
	DepModGt
	DepModLt
)

func (m DepMod) Known() bool {
	return m >= DepModAny && m <= DepModLt
}

func (m DepMod) String() string {
	switch m {
	case DepModAny:
		return "any"
	case DepModEq:
		return "="
	case DepModGe:
		return ">="
	case DepModLe:
		return "<="
	case DepModGt:
		return ">"
	case DepModLt:
		return "<"
	}
	return fmt.Sprintf("DepMod(%d)", int(m))
}
