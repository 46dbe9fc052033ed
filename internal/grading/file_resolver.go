package grading

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/pick"
)

// FileResolver adapts an outcomes file to the resolver interface: a
// JSON object mapping pick_id to its resolved outcome, produced by the
// external results collaborator. Picks absent from the file are simply
// not settled yet.
type FileResolver struct {
	path string
}

// NewFileResolver points at an outcomes file.
func NewFileResolver(path string) *FileResolver {
	return &FileResolver{path: path}
}

// Resolve re-reads the file on every call so a long-running scheduler
// sees newly settled outcomes without a restart.
func (f *FileResolver) Resolve(_ context.Context, p pick.Pick) (*ResolvedOutcome, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ResolvedOutcome{Settled: false}, nil
		}
		return nil, fmt.Errorf("read outcomes file: %w", err)
	}
	var outcomes map[string]ResolvedOutcome
	if err := json.Unmarshal(data, &outcomes); err != nil {
		return nil, fmt.Errorf("parse outcomes file: %w", err)
	}
	out, ok := outcomes[p.PickID]
	if !ok {
		return &ResolvedOutcome{Settled: false}, nil
	}
	out.Settled = true
	return &out, nil
}
