package igv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	// batchTimeout bounds one IGV batch invocation; a run that blows
	// it forfeits that batch's images and the run moves on.
	batchTimeout = 1200 * time.Second

	virtualScreen      = "1920x1080x24"
	virtualDisplayBase = 99
)

// GenerateImages renders snapshots for the given batch stanzas by
// driving IGV in batch mode. On Linux IGV runs against a throwaway
// Xvfb display. Individual batch failures, timeouts included, are
// logged and skipped; the remaining batches still run.
func GenerateImages(ctx context.Context, entries []string, outdir, genome string, trio bool, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		return fmt.Errorf("image rendering supports only Linux and macOS, not %s", runtime.GOOS)
	}
	if len(entries) == 0 {
		return errors.New("no valid regions for batch image generation")
	}

	batches, err := writeBatchScripts(outdir, genome, entries)
	if err != nil {
		return err
	}
	prefs, err := writePrefsFile(outdir, trio)
	if err != nil {
		return err
	}

	for _, batch := range batches {
		if err := runBatch(ctx, batch, prefs, outdir, len(batches), logger); err != nil {
			logger.Error("IGV batch failed", zap.String("batch", batch), zap.Error(err))
		}
		os.Remove(batch)
	}
	return nil
}

func runBatch(ctx context.Context, batchFile, prefsFile, outdir string, batchCount int, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	igvLog, err := os.OpenFile(filepath.Join(outdir, "igv.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open igv.log: %w", err)
	}
	defer igvLog.Close()

	cmd := exec.CommandContext(ctx, "igv", "-b", batchFile, "--preferences", prefsFile)
	cmd.Stdout = igvLog
	cmd.Stderr = igvLog

	if runtime.GOOS == "linux" {
		display, err := freeDisplay(virtualDisplayBase, virtualDisplayBase+batchCount)
		if err != nil {
			return err
		}
		xvfb := exec.Command("Xvfb", fmt.Sprintf(":%d", display), "-screen", "0", virtualScreen)
		if err := xvfb.Start(); err != nil {
			return fmt.Errorf("start Xvfb: %w", err)
		}
		defer func() {
			xvfb.Process.Signal(syscall.SIGTERM)
			xvfb.Wait()
		}()
		time.Sleep(time.Second)

		cmd.Env = append(os.Environ(), fmt.Sprintf("DISPLAY=:%d", display))
		logger.Debug("running IGV batch", zap.String("batch", batchFile), zap.Int("display", display))
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run IGV batch: %w", err)
	}
	return nil
}

// freeDisplay probes X lock files for an unused display number.
func freeDisplay(start, end int) (int, error) {
	for n := start; n <= end+10; n++ {
		if _, err := os.Stat(fmt.Sprintf("/tmp/.X%d-lock", n)); errors.Is(err, os.ErrNotExist) {
			return n, nil
		}
	}
	return 0, fmt.Errorf("no free X displays found (range %d-%d)", start, end+10)
}
