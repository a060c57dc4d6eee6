package quirks

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gethiox/evmoused/internal/pkg/input"
	"github.com/gethiox/evmoused/internal/pkg/logger"
	"go.uber.org/zap"
)

var ErrNoQuirk = errors.New("no quirk found")

const (
	FactoryDir = "factory"
	UserDir    = "user"
)

type QuirkMap map[input.InputID]Quirk

// Database holds factory and user entries per supported device class.
type Database struct {
	Root    string
	Factory map[input.Class]QuirkMap
	User    map[input.Class]QuirkMap
}

func NewDatabase(root string) *Database {
	db := &Database{
		Root:    root,
		Factory: make(map[input.Class]QuirkMap),
		User:    make(map[input.Class]QuirkMap),
	}
	for _, class := range supportedClasses() {
		db.Factory[class] = make(QuirkMap)
		db.User[class] = make(QuirkMap)
	}
	return db
}

func supportedClasses() []input.Class {
	var classes []input.Class
	for c := input.UnknownClass; c <= input.JoystickClass; c++ {
		if c.Supported() {
			classes = append(classes, c)
		}
	}
	return classes
}

// Dirs returns every class directory of the tree, factory first.
func Dirs(root string) []string {
	var dirs []string
	for _, origin := range []string{FactoryDir, UserDir} {
		for _, class := range supportedClasses() {
			dirs = append(dirs, filepath.Join(root, origin, class.String()))
		}
	}
	return dirs
}

// Load reads root/{factory,user}/<class>/ quirk files. Missing directories
// are skipped, any malformed file fails the whole load.
func Load(root string) (*Database, error) {
	db := NewDatabase(root)

	for _, class := range supportedClasses() {
		for _, origin := range []struct {
			dir   string
			user  bool
			quirk QuirkMap
		}{
			{FactoryDir, false, db.Factory[class]},
			{UserDir, true, db.User[class]},
		} {
			dir := filepath.Join(root, origin.dir, class.String())
			err := loadDirectory(dir, class, origin.user, origin.quirk)
			if err != nil {
				return db, fmt.Errorf("loading \"%s\" directory failed: %w", dir, err)
			}
		}
	}
	return db, nil
}

func loadDirectory(root string, class input.Class, user bool, quirks QuirkMap) error {
	_, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info(fmt.Sprintf("quirk directory %s does not exist", root), logger.Debug)
		return nil
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := FormatOf(path); !ok {
			return nil
		}

		q, err := readQuirk(path, class, user)
		if err != nil {
			return err
		}
		if prev, ok := quirks[q.ID]; ok {
			log.Info(fmt.Sprintf("quirk %s overrides %s for %s", q.Source, prev.Source, q.ID),
				zap.String("quirk", q.Name), logger.Warning)
		}
		quirks[q.ID] = q
		return nil
	})
}

// Find resolves the entry for a device: user exact, user default, factory
// exact, then factory default.
func (db *Database) Find(class input.Class, id input.InputID) (Quirk, error) {
	if !class.Supported() {
		return Quirk{}, fmt.Errorf("%w: %s", input.ErrUnsupportedDevice, class)
	}

	for _, m := range []QuirkMap{db.User[class], db.Factory[class]} {
		if q, ok := m[id]; ok {
			return q, nil
		}
		if q, ok := m[input.InputID{}]; ok {
			return q, nil
		}
	}
	return Quirk{}, fmt.Errorf("%w for %s device %s", ErrNoQuirk, class, id)
}

func (db *Database) Count() int {
	var n int
	for _, m := range db.Factory {
		n += len(m)
	}
	for _, m := range db.User {
		n += len(m)
	}
	return n
}
