package repo

import (
	"path/filepath"
	"strings"

	"fota-manager/backend/app/apperr"
)

const ledgerSuffix = "_device_details.csv"

// Layout owns the on-disk naming rules:
//
//	<root>/<target>/<version>/<binary>
//	<root>/<target>/<target>_device_details.csv
type Layout struct {
	Root string
}

func NewLayout(root string) *Layout { return &Layout{Root: filepath.Clean(root)} }

func (l *Layout) TargetDir(target string) string { return filepath.Join(l.Root, target) }

func (l *Layout) VersionDir(target, version string) string {
	return filepath.Join(l.Root, target, version)
}

func (l *Layout) LedgerPath(target string) string {
	return filepath.Join(l.Root, target, target+ledgerSuffix)
}

// ValidateName rejects names that cannot be used as a single path element.
func ValidateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return apperr.Validation("validate", "%s is required", field)
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return apperr.Validation("validate", "%s %q is not a valid name", field, name)
	}
	if strings.HasPrefix(name, ".") {
		return apperr.Validation("validate", "%s %q must not start with a dot", field, name)
	}
	return nil
}
