package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bgrewell/dvd-kit"
	"github.com/bgrewell/dvd-kit/internal/config"
	"github.com/bgrewell/dvd-kit/pkg/options"
	"github.com/gofrs/flock"
	"github.com/theckman/yacspin"
	"golang.org/x/term"
)

var (
	version = "dev"
)

// lockName is created in the output directory while an extraction runs.
const lockName = ".dvdextract.lock"

// truncateString truncates the input string to the specified max length.
// If truncation occurs, it prepends "..." to indicate the string has been shortened.
func truncateString(input string, maxLength int) string {
	if len(input) <= maxLength {
		return input
	}
	if maxLength <= 3 {
		return input[len(input)-maxLength:]
	}
	return "..." + input[len(input)-(maxLength-3):]
}

// CreateProgressCallback returns a ProgressCallback that updates the spinner's message.
func CreateProgressCallback(spinner *yacspin.Spinner) options.ProgressCallback {
	return func(
		currentFilename string,
		bytesTransferred int64,
		totalBytes int64,
		currentFileNumber int,
		totalFileCount int,
	) {
		width, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil {
			width = 80
		}

		percent := 100.0
		if totalBytes > 0 {
			percent = float64(bytesTransferred) / float64(totalBytes) * 100
		}

		fixedPart := fmt.Sprintf(" [%d/%d] ", currentFileNumber, totalFileCount)
		suffixPart := fmt.Sprintf(" - %.2f%%", percent)

		availableSpace := width - len(fixedPart) - len(suffixPart) - 6
		if availableSpace < 10 {
			availableSpace = 10
		}

		spinner.Message(fmt.Sprintf("%s%s%s", fixedPart, truncateString(currentFilename, availableSpace), suffixPart))
	}
}

// InitializeSpinner sets up and starts the yacspin spinner.
func InitializeSpinner() (*yacspin.Spinner, error) {
	settings := yacspin.Config{
		Frequency:         100 * time.Millisecond,
		ShowCursor:        false,
		SpinnerAtEnd:      false,
		CharSet:           yacspin.CharSets[14],
		Colors:            []string{"fgHiCyan"},
		StopColors:        []string{"fgHiGreen"},
		StopFailColors:    []string{"fgHiRed"},
		StopFailCharacter: "✗",
		StopCharacter:     "✓",
	}

	spinner, err := yacspin.New(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create spinner: %w", err)
	}

	if err := spinner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start spinner: %w", err)
	}

	return spinner, nil
}

// parseTitles turns "0,1,3" into title numbers. An empty list selects every title.
func parseTitles(list string) ([]int, error) {
	var titles []int
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid title %q", field)
		}
		titles = append(titles, n)
	}
	return titles, nil
}

func usage() {
	fmt.Println("dvdextract v" + version)
	fmt.Println("Usage: dvdextract [options] <dvd-path>")
	fmt.Println("  -v               Enable verbose (debug) logging")
	fmt.Println("  -vv              Enable trace logging")
	fmt.Println("  -c <file>        Configuration file (default ~/.config/dvd-kit/config.toml)")
	fmt.Println("  -fs <name>       File system to read: auto, udf or iso9660")
	fmt.Println("  -t <list>        Comma separated titles to extract, 0 is the video manager (default: all)")
	fmt.Println("  -o <directory>   Output directory (default './extracted')")
}

func main() {
	os.Exit(run())
}

// lockOutput creates dir and takes the extraction lock inside it. The returned function releases the lock
// and removes the lock file.
func lockOutput(dir string) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	lock := flock.New(filepath.Join(dir, lockName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock output directory: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another extraction is writing to %s", dir)
	}
	return func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}, nil
}

func run() int {
	debug := flag.Bool("v", false, "Enable verbose (debug) logging")
	trace := flag.Bool("vv", false, "Enable trace logging")
	configPath := flag.String("c", "", "Configuration file")
	fileSystem := flag.String("fs", "", "File system to read: auto, udf or iso9660")
	titleList := flag.String("t", "", "Comma separated titles to extract")
	outputDir := flag.String("o", "./extracted", "Output directory for extracted files")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		return 1
	}
	dvdPath := flag.Arg(0)

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if *fileSystem != "" {
		cfg.FileSystem = strings.ToLower(*fileSystem)
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -fs: %v\n", err)
			return 1
		}
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	if *trace {
		cfg.LogLevel = "trace"
	}
	logger := cfg.Logger(os.Stderr)

	titles, err := parseTitles(*titleList)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -t: %v\n", err)
		return 1
	}

	unlock, err := lockOutput(*outputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer unlock()

	opts := cfg.Options(logger)
	spinner, err := InitializeSpinner()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize spinner: %v\n", err)
		fmt.Fprintf(os.Stderr, "Progress updates will be disabled.\n")
	} else {
		opts = append(opts, options.WithProgress(CreateProgressCallback(spinner)))
	}

	r, err := dvd.Open(dvdPath, opts...)
	if err != nil {
		stopFail(spinner, fmt.Sprintf("Failed to open DVD: %v", err))
		return 1
	}

	done := make(chan error, 1)
	go func() {
		done <- r.Extract(*outputDir, titles...)
	}()
	err = <-done

	if cerr := r.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		stopFail(spinner, fmt.Sprintf("Failed to extract DVD: %v", err))
		return 1
	}

	message := fmt.Sprintf(" All files extracted successfully to %s!", filepath.Join(*outputDir, "VIDEO_TS"))
	if spinner == nil {
		fmt.Println(message)
		return 0
	}
	spinner.StopMessage(message)
	_ = spinner.Stop()
	return 0
}

func stopFail(spinner *yacspin.Spinner, message string) {
	if spinner == nil {
		fmt.Fprintln(os.Stderr, message)
		return
	}
	spinner.StopFailMessage(message)
	_ = spinner.StopFail()
}
