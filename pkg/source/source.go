// SPDX-License-Identifier: Apache-2.0

// Package source implements the script source (component C2):
// enumerating embedded/packaged SQL scripts across one or more probed
// filesystems and classifying each by its filename/path convention
// (spec §4.2).
package source

import (
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/dbex-project/dbex/pkg/dbexerr"
)

// Kind classifies a discovered script, matching spec §3's
// MigrationScript.kind.
type Kind int

const (
	KindMigrate Kind = iota
	KindSchema
	KindData
	KindPreDeploy
	KindPostDeploy
	KindPostDatabaseCreate
	KindReset
	KindExecute
)

func (k Kind) String() string {
	switch k {
	case KindMigrate:
		return "Migrate"
	case KindSchema:
		return "Schema"
	case KindData:
		return "Data"
	case KindPreDeploy:
		return "PreDeploy"
	case KindPostDeploy:
		return "PostDeploy"
	case KindPostDatabaseCreate:
		return "PostDatabaseCreate"
	case KindReset:
		return "Reset"
	case KindExecute:
		return "Execute"
	default:
		return "Unknown"
	}
}

// ScriptRef identifies a discovered script without reading its
// content: the canonical name used by the journal, its kind, which
// probed filesystem root it was found under, the path within that
// root, a group ordinal (lower runs first; Schema scripts within the
// same schema/type group keep file order), and whether it always
// re-runs even once journalled.
type ScriptRef struct {
	Name       string
	Kind       Kind
	fsys       fs.FS
	Path       string
	GroupOrder int
	RunAlways  bool
	// Schema and ObjectFolder are populated for KindSchema scripts,
	// parsed from the Schema/<schema>/<objectFolder>/ path prefix.
	Schema       string
	ObjectFolder string
}

// Open returns a streaming reader for the script's content.
func (s ScriptRef) Open() (fs.File, error) {
	f, err := s.fsys.Open(s.Path)
	if err != nil {
		return nil, dbexerr.ErrResourceNotFound
	}
	return f, nil
}

// Source probes an ordered list of filesystems for scripts. A later
// root never overrides an earlier root's script of the same name;
// the first root to produce a name wins, mirroring "ordered probing
// list" in spec §4.2.
type Source struct {
	roots []fs.FS
}

// New returns a Source that probes roots in order.
func New(roots ...fs.FS) *Source {
	return &Source{roots: roots}
}

// Discover walks every probed root and returns every classified
// script, migration/schema/reset scripts ordered by filename within
// their kind, pre/post-deploy scripts ordered by filename, consistent
// with spec §4.2 ("recommended prefix YYYYMMDD-HHmmss-").
func (s *Source) Discover() ([]ScriptRef, error) {
	seen := make(map[string]bool)
	var refs []ScriptRef

	for _, root := range s.roots {
		err := fs.WalkDir(root, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ref, ok := classify(root, p)
			if !ok {
				return nil
			}
			if seen[ref.Name] {
				return nil
			}
			seen[ref.Name] = true
			refs = append(refs, ref)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].Kind != refs[j].Kind {
			return refs[i].Kind < refs[j].Kind
		}
		if refs[i].GroupOrder != refs[j].GroupOrder {
			return refs[i].GroupOrder < refs[j].GroupOrder
		}
		return refs[i].Name < refs[j].Name
	})

	return refs, nil
}

func classify(fsys fs.FS, p string) (ScriptRef, bool) {
	base := path.Base(p)

	switch {
	case strings.HasSuffix(base, ".pre.deploy.sql"):
		return ScriptRef{Name: base, Kind: KindPreDeploy, fsys: fsys, Path: p, RunAlways: true}, true

	case strings.HasSuffix(base, ".post.deploy.sql"):
		return ScriptRef{Name: base, Kind: KindPostDeploy, fsys: fsys, Path: p, RunAlways: true}, true

	case strings.HasSuffix(base, ".post.database.create.sql"):
		return ScriptRef{Name: base, Kind: KindPostDatabaseCreate, fsys: fsys, Path: p, RunAlways: false}, true

	case strings.HasPrefix(p, "Migrations/") && strings.HasSuffix(base, ".sql"):
		return ScriptRef{Name: base, Kind: KindMigrate, fsys: fsys, Path: p, RunAlways: false}, true

	case strings.HasPrefix(p, "Schema/") && strings.HasSuffix(base, ".sql"):
		parts := strings.Split(p, "/")
		var schema, objectFolder string
		if len(parts) >= 2 {
			schema = parts[1]
		}
		if len(parts) >= 3 {
			objectFolder = parts[2]
		}
		return ScriptRef{
			Name: p, Kind: KindSchema, fsys: fsys, Path: p, RunAlways: true,
			Schema: schema, ObjectFolder: objectFolder,
		}, true

	case strings.HasPrefix(p, "Reset/") && strings.HasSuffix(base, ".sql"):
		return ScriptRef{Name: base, Kind: KindReset, fsys: fsys, Path: p, RunAlways: true}, true

	case strings.HasPrefix(p, "Data/") && (strings.HasSuffix(base, ".yaml") || strings.HasSuffix(base, ".yml") || strings.HasSuffix(base, ".json")):
		return ScriptRef{Name: base, Kind: KindData, fsys: fsys, Path: p, RunAlways: true}, true

	default:
		return ScriptRef{}, false
	}
}
