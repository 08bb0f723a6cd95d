package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/bgrewell/dvd-kit"
	"github.com/bgrewell/dvd-kit/internal/config"
	"github.com/bgrewell/dvd-kit/pkg/logging"
	"github.com/bgrewell/usage"
	"github.com/dustin/go-humanize"
)

// titleRow is one line of the title table.
type titleRow struct {
	Title  int    `json:"title"`
	Domain string `json:"domain"`
	Parts  int    `json:"parts"`
	Size   int64  `json:"size"`
}

// report is everything dvdinfo prints about a volume.
type report struct {
	Location  string          `json:"location"`
	Backing   string          `json:"backing"`
	DiscID    string          `json:"disc_id,omitempty"`
	UDF       *dvd.VolumeInfo `json:"udf,omitempty"`
	ISO9660   *dvd.VolumeInfo `json:"iso9660,omitempty"`
	Titles    []titleRow      `json:"titles"`
	TotalSize int64           `json:"total_size"`
}

func main() {

	u := usage.NewUsage()
	help := u.AddBooleanOption("h", "help", false, "Show this help message", "optional", nil)
	verbose := u.AddBooleanOption("v", "verbose", false, "Print debug logging", "", nil)
	trace := u.AddBooleanOption("vv", "trace", false, "Print trace logging", "", nil)
	asJSON := u.AddBooleanOption("j", "json", false, "Print the report as JSON", "", nil)
	path := u.AddArgument(1, "dvd-path", "Block device, image file or directory holding the DVD-Video volume", "")
	parsed := u.Parse()

	if !parsed {
		u.PrintError(fmt.Errorf("failed to parse arguments"))
		os.Exit(1)
	}

	if *help {
		u.PrintUsage()
		os.Exit(0)
	}

	if path == nil || *path == "" {
		u.PrintError(fmt.Errorf("location of the dvd <dvd-path> must be provided"))
		os.Exit(1)
	}

	cfg, _, _, err := config.Load(os.Getenv("DVDKIT_CONFIG"))
	if err != nil {
		u.PrintError(err)
		os.Exit(1)
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}
	if *trace {
		cfg.LogLevel = "trace"
	}
	logger := cfg.Logger(os.Stderr)

	r, err := dvd.Open(*path, cfg.Options(logger)...)
	if err != nil {
		u.PrintError(err)
		os.Exit(1)
	}
	defer r.Close()

	rep, err := inspect(r)
	if err != nil {
		logger.Error(err, "Failed to inspect volume", "location", *path)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			logger.Error(err, "Failed to encode report")
			os.Exit(1)
		}
		return
	}
	fmt.Print(render(rep))
	logger.V(logging.DEBUG).Info("Done", "titles", len(rep.Titles))
}

// inspect gathers the volume labels and the size of every title set file.
func inspect(r dvd.Reader) (*report, error) {
	rep := &report{Location: r.Location(), Backing: r.Kind().String()}

	if info, err := r.UDFVolumeInfo(); err == nil {
		rep.UDF = &info
	} else if !errors.Is(err, dvd.ErrNotFound) {
		return nil, err
	}
	if info, err := r.ISOVolumeInfo(); err == nil {
		rep.ISO9660 = &info
	} else if !errors.Is(err, dvd.ErrNotFound) {
		return nil, err
	}

	id, err := r.DiscID()
	if err != nil {
		return nil, fmt.Errorf("disc id: %w", err)
	}
	rep.DiscID = id.String()

	titles, err := r.Titles()
	if err != nil {
		return nil, err
	}
	for _, title := range titles {
		for _, domain := range []dvd.Domain{dvd.DomainInfoFile, dvd.DomainBackupFile, dvd.DomainMenuVobs, dvd.DomainTitleVobs} {
			stat, err := r.Stat(title, domain)
			if errors.Is(err, dvd.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			rep.Titles = append(rep.Titles, titleRow{Title: title, Domain: domain.String(), Parts: stat.NrParts, Size: stat.Size})
			rep.TotalSize += stat.Size
		}
	}
	return rep, nil
}

func label(info *dvd.VolumeInfo) string {
	if info == nil {
		return "-"
	}
	return info.VolumeIdentifier
}

func render(rep *report) string {
	out := fmt.Sprintf("Location:  %s\nBacking:   %s\nUDF label: %s\nISO label: %s\nDisc ID:   %s\nTotal:     %s\n\n",
		rep.Location, rep.Backing, label(rep.UDF), label(rep.ISO9660), rep.DiscID, humanize.IBytes(uint64(rep.TotalSize)))

	rows := make([][]string, 0, len(rep.Titles))
	for _, t := range rep.Titles {
		rows = append(rows, []string{
			fmt.Sprintf("%02d", t.Title),
			t.Domain,
			fmt.Sprintf("%d", t.Parts),
			humanize.IBytes(uint64(t.Size)),
			humanize.Comma(t.Size),
		})
	}
	return out + renderTable(
		[]string{"Title", "Domain", "Parts", "Size", "Bytes"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight},
	) + "\n"
}
