package main

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gethiox/evmoused/internal/pkg/logger"
	"github.com/gethiox/evmoused/internal/pkg/quirks"
)

//go:embed evmoused-config/evmoused.config
//go:embed evmoused-config/quirks/*/*
var templateConfig embed.FS

const (
	templateDir    = "evmoused-config"
	configFileName = "evmoused.config"
	quirksDirName  = "quirks"
)

func destination(root, name string) string {
	rel := strings.TrimPrefix(strings.TrimPrefix(name, templateDir), "/")
	return filepath.Join(root, filepath.FromSlash(rel))
}

func writeFile(dst string, data []byte) error {
	fd, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("cannot open \"%s\" file: %w", dst, err)
	}
	defer fd.Close()

	_, err = fd.Write(data)
	if err != nil {
		return fmt.Errorf("cannot write data into \"%s\" file: %w", dst, err)
	}
	return nil
}

// bootstrapConfig writes the template tree into root when root does not
// exist yet. For an existing tree only factory quirks get refreshed,
// evmoused.config and user quirks stay intact.
func bootstrapConfig(tmpl fs.FS, root string) error {
	_, err := os.Stat(root)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("cannot open config directory: %w", err)
		}
		log.Info("config not exist, generating tree...", logger.Info)

		err = fs.WalkDir(tmpl, templateDir, func(name string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			dst := destination(root, name)
			if d.IsDir() {
				err := os.MkdirAll(dst, 0o755)
				if err != nil {
					return fmt.Errorf("cannot create \"%s\" directory: %w", dst, err)
				}
				return nil
			}

			data, err := fs.ReadFile(tmpl, name)
			if err != nil {
				return fmt.Errorf("cannot read \"%s\" template file: %w", name, err)
			}
			err = writeFile(dst, data)
			if err != nil {
				return err
			}
			log.Info(fmt.Sprintf("Created \"%s\" file", dst), logger.Debug)
			return nil
		})
		if err != nil {
			return fmt.Errorf("config generation failed: %w", err)
		}
		log.Info("config generation done", logger.Info)
	} else {
		err = refreshFactory(tmpl, root)
		if err != nil {
			return fmt.Errorf("update factory quirks failed: %w", err)
		}
	}

	// user class directories are expected by the quirk monitor
	for _, dir := range quirks.Dirs(filepath.Join(root, quirksDirName)) {
		err := os.MkdirAll(dir, 0o755)
		if err != nil {
			return fmt.Errorf("cannot create \"%s\" directory: %w", dir, err)
		}
	}
	return nil
}

func refreshFactory(tmpl fs.FS, root string) error {
	factory := path.Join(templateDir, quirksDirName, quirks.FactoryDir)

	return fs.WalkDir(tmpl, factory, func(name string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		dst := destination(root, name)
		if entry.IsDir() {
			err := os.MkdirAll(dst, 0o755)
			if err != nil {
				return fmt.Errorf("cannot create \"%s\" directory: %w", dst, err)
			}
			return nil
		}

		newData, err := fs.ReadFile(tmpl, name)
		if err != nil {
			return fmt.Errorf("cannot read \"%s\" file template: %w", name, err)
		}

		data, err := os.ReadFile(dst)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Info(fmt.Sprintf("Creating new factory quirk: \"%s\"", dst), logger.Debug)
		case err != nil:
			return fmt.Errorf("cannot read \"%s\" file: %w", dst, err)
		case bytes.Equal(data, newData):
			log.Info(fmt.Sprintf("File \"%s\" not changed", dst), logger.Debug)
			return nil
		default:
			log.Info(fmt.Sprintf("File \"%s\" changed, replacing data...", dst), logger.Debug)
		}
		return writeFile(dst, newData)
	})
}
