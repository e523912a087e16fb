package partition

import (
	"fmt"
	"io"
	"os"

	"github.com/biogo/hts/bam"
	"go.uber.org/multierr"
)

// WriteBAI builds a positional index for a finished BAM file and
// writes it alongside as <path>.bai. The file must be fully written
// and closed; the index is derived by re-reading it, so it reflects
// exactly the reads on disk.
func WriteBAI(bamPath string) (err error) {
	f, err := os.Open(bamPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", bamPath, err)
	}
	defer f.Close()

	br, err := bam.NewReader(f, 1)
	if err != nil {
		return fmt.Errorf("read %s: %w", bamPath, err)
	}
	defer func() {
		err = multierr.Append(err, br.Close())
	}()

	var idx bam.Index
	for {
		rec, rerr := br.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("read %s: %w", bamPath, rerr)
		}
		if aerr := idx.Add(rec, br.LastChunk()); aerr != nil {
			return fmt.Errorf("index %s: %w", bamPath, aerr)
		}
	}

	out, err := os.Create(bamPath + ".bai")
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if werr := bam.WriteIndex(out, &idx); werr != nil {
		out.Close()
		return fmt.Errorf("write index: %w", werr)
	}
	if cerr := out.Close(); cerr != nil {
		return fmt.Errorf("write index: %w", cerr)
	}
	return nil
}
