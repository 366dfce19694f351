// Package logging keeps a daily rotating archive of the SBS output.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
)

const (
	filePrefix    = "sbs_"
	fileExt       = ".log"
	compressedExt = ".log.zst"
	dateLayout    = "2006-01-02"
)

// Archive appends SBS lines to sbs_YYYY-MM-DD.log, starts a new file when
// the date changes and compresses the previous day with zstd.
type Archive struct {
	logDir      string
	useUTC      bool
	maxDays     int
	logger      *logrus.Logger
	now         func() time.Time
	currentFile *os.File
	currentDate string
	mutex       sync.RWMutex
	compressing sync.WaitGroup
}

// NewArchive creates the directory and opens today's file. maxDays of zero
// keeps every file.
func NewArchive(logDir string, useUTC bool, maxDays int, logger *logrus.Logger) (*Archive, error) {
	return newArchive(logDir, useUTC, maxDays, logger, time.Now)
}

func newArchive(logDir string, useUTC bool, maxDays int, logger *logrus.Logger, now func() time.Time) (*Archive, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	a := &Archive{
		logDir:  logDir,
		useUTC:  useUTC,
		maxDays: maxDays,
		logger:  logger,
		now:     now,
	}

	a.mutex.Lock()
	err := a.rotateLogFile()
	a.mutex.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize archive file: %w", err)
	}
	return a, nil
}

// Start checks for a date change every minute and prunes old files once a
// day until ctx is cancelled.
func (a *Archive) Start(ctx context.Context) {
	a.logger.WithField("dir", a.logDir).Info("Starting SBS archive")

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	lastCleanup := ""
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("SBS archive stopping")
			return
		case <-ticker.C:
			a.checkRotation()
			if a.maxDays > 0 && lastCleanup != a.today() {
				lastCleanup = a.today()
				if err := a.CleanupOldLogs(a.maxDays); err != nil {
					a.logger.WithError(err).Warn("Failed to clean up archive")
				}
			}
		}
	}
}

func (a *Archive) today() string {
	now := a.now()
	if a.useUTC {
		now = now.UTC()
	}
	return now.Format(dateLayout)
}

func (a *Archive) checkRotation() {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.currentFile != nil && a.currentDate != a.today() {
		a.logger.WithFields(logrus.Fields{
			"old_date": a.currentDate,
			"new_date": a.today(),
		}).Info("Rotating archive file")

		if err := a.rotateLogFile(); err != nil {
			a.logger.WithError(err).Error("Failed to rotate archive file")
		}
	}
}

// rotateLogFile closes the current file, schedules its compression and
// opens the file for today. The caller holds the mutex.
func (a *Archive) rotateLogFile() error {
	newDate := a.today()

	if a.currentFile != nil {
		if err := a.currentFile.Close(); err != nil {
			a.logger.WithError(err).Error("Failed to close old archive file")
		}
		if a.currentDate != newDate {
			oldDate := a.currentDate
			a.compressing.Add(1)
			go func() {
				defer a.compressing.Done()
				a.compressLogFile(oldDate)
			}()
		}
	}

	path := a.pathFor(newDate)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create archive file %s: %w", path, err)
	}

	a.currentFile = file
	a.currentDate = newDate
	a.logger.WithField("file", path).Info("Opened archive file")
	return nil
}

func (a *Archive) pathFor(date string) string {
	return filepath.Join(a.logDir, filePrefix+date+fileExt)
}

// compressLogFile writes <date>.log.zst and removes the plain file
func (a *Archive) compressLogFile(date string) {
	logFile := a.pathFor(date)
	zstFile := filepath.Join(a.logDir, filePrefix+date+compressedExt)

	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		a.logger.WithField("file", logFile).Debug("Archive file doesn't exist, skipping compression")
		return
	}

	if err := compressFile(logFile, zstFile); err != nil {
		a.logger.WithError(err).WithField("file", logFile).Error("Failed to compress archive file")
		os.Remove(zstFile)
		return
	}

	if err := os.Remove(logFile); err != nil {
		a.logger.WithError(err).WithField("file", logFile).Error("Failed to remove original archive file")
		return
	}
	a.logger.WithField("file", zstFile).Info("Archive file compressed successfully")
}

func compressFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create compressed file: %w", err)
	}
	defer dst.Close()

	enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if _, err := io.Copy(enc, src); err != nil {
		enc.Close()
		return fmt.Errorf("failed to compress: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to close zstd writer: %w", err)
	}
	return dst.Close()
}

// WriteLines appends lines, rotating first when the date has changed
func (a *Archive) WriteLines(lines []string) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.currentFile == nil {
		return errors.New("archive is closed")
	}
	if a.currentDate != a.today() {
		if err := a.rotateLogFile(); err != nil {
			return err
		}
	}

	for _, line := range lines {
		if _, err := io.WriteString(a.currentFile, line+"\n"); err != nil {
			return fmt.Errorf("failed to write archive: %w", err)
		}
	}
	return nil
}

// Send appends one line. It lets the archive subscribe to the output hub.
func (a *Archive) Send(line string) error {
	return a.WriteLines([]string{line})
}

func (a *Archive) String() string {
	return "archive://" + a.logDir
}

// Close closes the current file and waits for pending compression
func (a *Archive) Close() error {
	a.mutex.Lock()
	var err error
	if a.currentFile != nil {
		err = a.currentFile.Close()
		a.currentFile = nil
	}
	a.mutex.Unlock()

	a.compressing.Wait()
	if err != nil {
		return fmt.Errorf("failed to close archive file: %w", err)
	}
	return nil
}

// GetCurrentLogFile returns the path being written
func (a *Archive) GetCurrentLogFile() string {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	if a.currentDate == "" {
		return ""
	}
	return a.pathFor(a.currentDate)
}

// GetLogFiles lists plain and compressed archive files
func (a *Archive) GetLogFiles() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(a.logDir, filePrefix+"*"+fileExt+"*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list archive files: %w", err)
	}
	return files, nil
}

// CleanupOldLogs removes archive files last modified more than maxDays ago
func (a *Archive) CleanupOldLogs(maxDays int) error {
	if maxDays <= 0 {
		return fmt.Errorf("maxDays must be positive")
	}

	files, err := a.GetLogFiles()
	if err != nil {
		return err
	}

	cutoff := a.now().AddDate(0, 0, -maxDays)
	current := a.GetCurrentLogFile()

	removed := 0
	for _, file := range files {
		if file == current {
			continue
		}

		info, err := os.Stat(file)
		if err != nil {
			a.logger.WithError(err).WithField("file", file).Warn("Failed to stat archive file")
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(file); err != nil {
				a.logger.WithError(err).WithField("file", file).Error("Failed to remove old archive file")
			} else {
				a.logger.WithField("file", file).Info("Removed old archive file")
				removed++
			}
		}
	}

	a.logger.WithField("count", removed).Info("Cleaned up old archive files")
	return nil
}
