// Package resolver maps dotted defense identifiers onto defense catalog nodes.
//
// Lookup is positional: each identifier segment, minus one, indexes the
// ordered sequence at its depth. The id string stored on a node is returned
// for display but never consulted during lookup.
package resolver

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/iyulab/impact-analyzer/internal/catalog"
)

var (
	// ErrResolution marks an identifier that is malformed or addresses no catalog node.
	ErrResolution = errors.New("unresolvable defense identifier")

	// ErrVersionDataMissing marks a node that has no compatibility record for a platform version.
	// It does not mean the node is compatible.
	ErrVersionDataMissing = errors.New("no version data")
)

var identifierPattern = regexp.MustCompile(`^\d+(\.\d+){1,2}$`)

// ResolutionError describes why an identifier could not be resolved.
type ResolutionError struct {
	Identifier string
	Reason     string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve defense %q: %s", e.Identifier, e.Reason)
}

func (e *ResolutionError) Unwrap() error { return ErrResolution }

// DefenseDetail is the full description of a resolved measure or sub-measure.
type DefenseDetail struct {
	Category      string
	ID            string
	Name          string
	Type          string
	Template      *string
	VersionStatus catalog.VersionStatusMap
}

// Status returns the compatibility record for version, or ErrVersionDataMissing.
func (d DefenseDetail) Status(version string) (catalog.VersionStatus, error) {
	vs, ok := d.VersionStatus.Lookup(version)
	if !ok {
		return catalog.VersionStatus{}, fmt.Errorf("defense %s version %s: %w", d.ID, version, ErrVersionDataMissing)
	}
	return vs, nil
}

// Resolver resolves identifiers against one defense catalog.
type Resolver struct {
	catalog *catalog.DefenseCatalog
}

// New creates a Resolver over cat. The catalog must not be modified while in use.
func New(cat *catalog.DefenseCatalog) *Resolver {
	return &Resolver{catalog: cat}
}

// Resolve walks the catalog to the node addressed by identifier.
func (r *Resolver) Resolve(identifier string) (DefenseDetail, error) {
	if !identifierPattern.MatchString(identifier) {
		return DefenseDetail{}, &ResolutionError{Identifier: identifier, Reason: "expected 2 or 3 numeric dot-separated segments"}
	}

	segments := strings.Split(identifier, ".")
	idx := make([]int, len(segments))
	for i, s := range segments {
		n, err := strconv.Atoi(s)
		if err != nil {
			return DefenseDetail{}, &ResolutionError{Identifier: identifier, Reason: fmt.Sprintf("segment %q is not a number", s)}
		}
		idx[i] = n - 1
	}

	cats := r.catalog.Categories
	if idx[0] < 0 || idx[0] >= len(cats) {
		return DefenseDetail{}, outOfRange(identifier, 1, len(cats))
	}
	category := &cats[idx[0]]

	if idx[1] < 0 || idx[1] >= len(category.Measures) {
		return DefenseDetail{}, outOfRange(identifier, 2, len(category.Measures))
	}
	node := &category.Measures[idx[1]]

	if len(idx) == 3 {
		if idx[2] < 0 || idx[2] >= len(node.SubMeasures) {
			return DefenseDetail{}, outOfRange(identifier, 3, len(node.SubMeasures))
		}
		node = &node.SubMeasures[idx[2]]
	}

	return DefenseDetail{
		Category:      category.Name,
		ID:            node.ID,
		Name:          node.Name,
		Type:          node.Type,
		Template:      node.Template,
		VersionStatus: node.VersionStatus,
	}, nil
}

func outOfRange(identifier string, segment, size int) *ResolutionError {
	return &ResolutionError{
		Identifier: identifier,
		Reason:     fmt.Sprintf("segment %d out of range (level has %d entries)", segment, size),
	}
}
