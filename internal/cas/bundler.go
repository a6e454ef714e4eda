package cas

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// BundleOutputDir is the directory, under the bundle root, that
// collected CAS JSON files are copied into.
const BundleOutputDir = "jsons"

// BundleDir scans the subfolders of root (one per annotated document),
// picks the CAS JSON file inside each and copies it into root/jsons/,
// named after the folder. Folders without a JSON file are skipped with
// a warning; when a folder holds several, the lexicographically first
// one wins. Returns the number of files bundled.
func BundleDir(root string, logger *logrus.Logger) (int, error) {
	outputDir := filepath.Join(root, BundleOutputDir)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, fmt.Errorf("failed to read bundle root: %w", err)
	}

	bundled := 0
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || name == BundleOutputDir || strings.HasPrefix(name, ".") {
			continue
		}

		folder := filepath.Join(root, name)
		jsonFiles, err := listJSONFiles(folder)
		if err != nil {
			return bundled, err
		}

		switch {
		case len(jsonFiles) == 0:
			logger.WithField("folder", folder).Warn("No JSON file found, skipping")
			continue
		case len(jsonFiles) > 1:
			logger.WithFields(logrus.Fields{
				"folder": folder,
				"using":  jsonFiles[0],
			}).Warn("Multiple JSON files in folder, using first")
		}

		src := filepath.Join(folder, jsonFiles[0])
		dst := filepath.Join(outputDir, name+".json")
		if err := copyFile(src, dst); err != nil {
			return bundled, err
		}
		bundled++

		logger.WithFields(logrus.Fields{
			"source": src,
			"dest":   dst,
		}).Info("Bundled CAS JSON")
	}

	return bundled, nil
}

// listJSONFiles returns the sorted .json file names inside dir.
func listJSONFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
