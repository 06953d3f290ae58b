package plan

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

// DefaultReceiptPath is where the engine persists the installed plan
// (spec.md §6: "the receipt ... written to /nix/receipt.json").
const DefaultReceiptPath = "/nix/receipt.json"

// WriteReceipt serializes p and writes it to path atomically: a sibling
// temp file in the same directory is written and chmod'd first, then
// renamed over path, following the same temp-then-rename discipline every
// other atomic write in this engine uses (spec.md §4.4 invariant 4) rather
// than writing the receipt in place.
func WriteReceipt(fs ports.FileSystem, path string, p *Plan) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}

	dir := filepath.Dir(path)
	if !fs.Exists(dir) {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return installerrors.NewPath(installerrors.KindCreateDir, dir, err)
		}
	}

	tmp, err := fs.TempFile(dir, filepath.Base(path))
	if err != nil {
		return installerrors.NewPath(installerrors.KindOpen, dir, err)
	}
	if err := fs.WriteFile(tmp, data, 0o600); err != nil {
		_ = fs.Remove(tmp)
		return installerrors.NewPath(installerrors.KindWrite, tmp, err)
	}
	if err := fs.Chmod(tmp, 0o600); err != nil {
		_ = fs.Remove(tmp)
		return installerrors.NewPath(installerrors.KindSetPerms, tmp, err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return installerrors.NewPath(installerrors.KindRename, path, err)
	}
	return nil
}

// LoadReceipt reads and deserializes a previously persisted Plan from path.
// It does not hydrate the reconstructed actions' dependencies or check
// version compatibility — callers needing to act on the result (uninstall,
// a later install) must call action.HydrateAll and CheckVersionCompatible
// themselves, the same way Install checks compatibility before its own
// first step.
func LoadReceipt(fs ports.FileSystem, path string) (*Plan, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, installerrors.NewPath(installerrors.KindRead, path, err)
	}

	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal receipt %s: %w", path, err)
	}
	return &p, nil
}
