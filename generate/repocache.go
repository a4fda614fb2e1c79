package generate

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
)

// RepoInfo describes the repository a workspace directory belongs to.
type RepoInfo struct {
	Dir     string
	GitRoot string
	// Name is the project name from a manifest, else the repository or
	// directory base name.
	Name string
	// Source names where Name came from (a manifest file, "git" or "dir").
	Source string
}

const (
	repoCacheTTL  = 1 * time.Hour
	gatherTimeout = 5 * time.Second
)

// RepoCache is a TTL cache of RepoInfo entries keyed by directory.
type RepoCache struct {
	cache *ttlcache.Cache[string, *RepoInfo]
	group singleflight.Group
}

// NewRepoCache creates a new RepoCache with TTL-based expiration.
func NewRepoCache() *RepoCache {
	c := ttlcache.New[string, *RepoInfo](
		ttlcache.WithTTL[string, *RepoInfo](repoCacheTTL),
		ttlcache.WithDisableTouchOnHit[string, *RepoInfo](),
	)
	go c.Start()
	return &RepoCache{cache: c}
}

// Close stops the cache expiration loop.
func (rc *RepoCache) Close() {
	rc.cache.Stop()
}

// Get returns the cached RepoInfo for dir, or nil if not cached/expired.
func (rc *RepoCache) Get(dir string) *RepoInfo {
	item := rc.cache.Get(dir)
	if item == nil {
		return nil
	}
	return item.Value()
}

// Gather collects repository info for dir and caches it. Concurrent
// gathers of the same dir share one run.
func (rc *RepoCache) Gather(ctx context.Context, dir string) *RepoInfo {
	v, _, _ := rc.group.Do(dir, func() (any, error) {
		info := gatherRepo(ctx, dir)
		rc.cache.Set(dir, info, ttlcache.DefaultTTL)
		slog.Debug("gathered repository info", "dir", dir, "name", info.Name, "source", info.Source)
		return info, nil
	})
	return v.(*RepoInfo)
}

// Name returns the repository name for the file at path. It never blocks:
// on a cache miss it starts gathering in the background and returns "".
func (rc *RepoCache) Name(path string, workspaceDirs []string) string {
	dir := repoDir(path, workspaceDirs)
	if info := rc.Get(dir); info != nil {
		return info.Name
	}
	go rc.Gather(context.Background(), dir)
	return ""
}

// repoDir picks the workspace dir containing path, or the file's directory.
func repoDir(path string, workspaceDirs []string) string {
	for _, dir := range workspaceDirs {
		dir = filepath.Clean(dir)
		if strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return dir
		}
	}
	return filepath.Dir(path)
}

func gatherRepo(ctx context.Context, dir string) *RepoInfo {
	ctx, cancel := context.WithTimeout(ctx, gatherTimeout)
	defer cancel()

	info := &RepoInfo{Dir: dir}
	info.GitRoot = strings.TrimSpace(runCmd(ctx, dir, "git", "rev-parse", "--show-toplevel"))

	dirs := []string{dir}
	if info.GitRoot != "" && info.GitRoot != dir {
		dirs = append(dirs, info.GitRoot)
	}
	for _, d := range dirs {
		if name, source := manifestName(d); name != "" {
			info.Name, info.Source = name, source
			return info
		}
	}
	if info.GitRoot != "" {
		info.Name, info.Source = filepath.Base(info.GitRoot), "git"
		return info
	}
	info.Name, info.Source = filepath.Base(dir), "dir"
	return info
}

// runCmd runs a command and returns its stdout, or empty string on error.
func runCmd(ctx context.Context, dir string, name string, args ...string) string {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return string(out)
}

// manifestFiles lists the manifest filenames to look for, in priority order.
var manifestFiles = []string{
	"Cargo.toml",
	"pyproject.toml",
	"package.json",
	"go.mod",
}

// manifestName returns the project name declared by the first manifest in dir.
func manifestName(dir string) (name, source string) {
	for _, file := range manifestFiles {
		data, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			continue
		}
		switch file {
		case "Cargo.toml":
			name = extractCargoName(string(data))
		case "pyproject.toml":
			name = extractPyprojectName(string(data))
		case "package.json":
			name = extractPackageJSONName(data)
		case "go.mod":
			name = extractGoModName(string(data))
		}
		if name != "" {
			return name, file
		}
	}
	return "", ""
}

type cargoToml struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
}

// extractCargoName returns the package name from Cargo.toml.
func extractCargoName(content string) string {
	var cargo cargoToml
	if _, err := toml.Decode(content, &cargo); err != nil {
		return ""
	}
	return cargo.Package.Name
}

type pyprojectToml struct {
	Project struct {
		Name string `toml:"name"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name string `toml:"name"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// extractPyprojectName returns the project name from pyproject.toml,
// falling back to [tool.poetry].
func extractPyprojectName(content string) string {
	var pyproject pyprojectToml
	if _, err := toml.Decode(content, &pyproject); err != nil {
		return ""
	}
	if pyproject.Project.Name != "" {
		return pyproject.Project.Name
	}
	return pyproject.Tool.Poetry.Name
}

// extractPackageJSONName returns the "name" field of package.json.
func extractPackageJSONName(data []byte) string {
	var pkg struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return ""
	}
	return pkg.Name
}

// extractGoModName returns the last element of the module path.
func extractGoModName(content string) string {
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if mod, ok := strings.CutPrefix(line, "module "); ok {
			mod = strings.Trim(strings.TrimSpace(mod), `"`)
			return path.Base(mod)
		}
	}
	return ""
}
