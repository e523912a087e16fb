// Package layout defines the on-disk shape of a run's output tree.
// Every subject (sample or trio) owns data/<subject>/{bams,igv_sessions,images}
// under the output root; report rows and session files reference these
// paths relative to the root so the tree stays relocatable.
package layout

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const dataDirName = "data"

// DataDir returns the shared data directory under the output root.
func DataDir(outdir string) string {
	return filepath.Join(outdir, dataDirName)
}

// RelBams returns the subject's alignment-slice directory relative to
// the output root.
func RelBams(subject string) string {
	return filepath.Join(dataDirName, subject, "bams")
}

// RelSessions returns the subject's session-descriptor directory
// relative to the output root.
func RelSessions(subject string) string {
	return filepath.Join(dataDirName, subject, "igv_sessions")
}

// RelImages returns the subject's rendered-image directory relative to
// the output root.
func RelImages(subject string) string {
	return filepath.Join(dataDirName, subject, "images")
}

// SplitBAM returns the relative path of a per-region alignment slice.
// For trios the directory subject and the file's sample name differ.
func SplitBAM(subject, sample, regionName string) string {
	return filepath.Join(RelBams(subject), fmt.Sprintf("%s_%s.bam", sample, regionName))
}

// Image returns the relative path of a region's rendered snapshot.
func Image(subject, sample, regionName string) string {
	return filepath.Join(RelImages(subject), fmt.Sprintf("%s_%s.png", sample, regionName))
}

// Session returns the relative path of a region's durable session file.
func Session(subject, regionName string) string {
	return filepath.Join(RelSessions(subject), regionName+"_igv.xml")
}

// TransientSession returns the relative path of the hidden session copy
// written next to the alignment slices, where relative resource names
// resolve during rendering.
func TransientSession(subject, regionName string) string {
	return filepath.Join(RelBams(subject), "."+regionName+"_igv.xml")
}

// Prepare validates the output root once, before any subject is
// processed. It refuses the filesystem root and the home directory,
// and refuses to reuse an existing data directory unless clobber is
// set.
func Prepare(outdir string, clobber bool) error {
	abs, err := filepath.Abs(outdir)
	if err != nil {
		return fmt.Errorf("resolve output directory %s: %w", outdir, err)
	}
	home, _ := os.UserHomeDir()
	if abs == string(filepath.Separator) || (home != "" && abs == filepath.Clean(home)) {
		return fmt.Errorf("for safety reasons, output cannot be written to the root or home directory")
	}

	dataDir := DataDir(outdir)
	if info, err := os.Stat(dataDir); err == nil && info.IsDir() && !clobber {
		return fmt.Errorf("output data directory %s already exists and --clobber is not set", dataDir)
	}
	return nil
}

// MakeSubjectDirs creates the three per-subject output directories.
func MakeSubjectDirs(outdir, subject string) error {
	for _, rel := range []string{RelImages(subject), RelSessions(subject), RelBams(subject)} {
		if err := os.MkdirAll(filepath.Join(outdir, rel), 0o755); err != nil {
			return fmt.Errorf("create output directory %s: %w", rel, err)
		}
	}
	return nil
}

// Copy duplicates one root-relative file to another root-relative
// destination, never touching the source.
func Copy(outdir, fromRel, toRel string) error {
	src, err := os.Open(filepath.Join(outdir, fromRel))
	if err != nil {
		return fmt.Errorf("open %s: %w", fromRel, err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(outdir, toRel))
	if err != nil {
		return fmt.Errorf("create %s: %w", toRel, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("copy %s to %s: %w", fromRel, toRel, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("close %s: %w", toRel, err)
	}
	return nil
}
