// Command sweepview inspects measurement datasets from the command line:
// listing dataset directories, printing column and snapshot metadata,
// dividing a dimension into sweeps, and exporting columns as .npy arrays.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/qphyslab/sweepview"
	"github.com/qphyslab/sweepview/explore"
	"github.com/qphyslab/sweepview/internal/npyexport"
	"github.com/qphyslab/sweepview/snapshot"
)

var githash = "githash not computed"
var buildDate = "build date not computed"

// makeFileExist checks that dir/filename exists, and creates the directory
// and file if it doesn't.
func makeFileExist(dir, filename string) (string, error) {
	if strings.Contains(dir, "$HOME") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = strings.Replace(dir, "$HOME", home, 1)
	}
	if _, err := os.Stat(dir); err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		if err2 := os.MkdirAll(dir, 0775); err2 != nil {
			return "", err2
		}
	}
	fullname := path.Join(dir, filename)
	if _, err := os.Stat(fullname); os.IsNotExist(err) {
		f, err2 := os.OpenFile(fullname, os.O_WRONLY|os.O_CREATE, 0664)
		if err2 != nil {
			return "", err2
		}
		f.Close()
	}
	return fullname, nil
}

// setupViper sets up the viper configuration manager: where to find config
// files, and the defaults. The config file is optional for a read-only tool.
func setupViper() {
	viper.SetDefault("Verbose", false)
	viper.SetDefault("MaxAgeHours", 0)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".sweepview"))
	}
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			fmt.Printf("Error reading config file: %s\n", err)
		}
	}
}

func startLogger(pfname string) *log.Logger {
	probLogger := log.New(os.Stderr, "", log.LstdFlags)
	probLogger.SetOutput(&lumberjack.Logger{
		Filename:   pfname,
		MaxSize:    10, // megabytes after which new file is created
		MaxBackups: 4,
		MaxAge:     180, // days
	})
	return probLogger
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: sweepview [flags] <command> ...

commands:
  list <base-dir>              list dataset directories, newest first
  info <dataset-dir>...        print columns, row counts and metadata
  sweeps -dim <name> <dir>...  print sweep segmentation of a dimension
  export -column <name> -out <file.npy> <dir>...
                               export a column as a NumPy array
`)
	flag.PrintDefaults()
}

func main() {
	printVersion := flag.Bool("version", false, "print version and quit")
	verbose := flag.Bool("v", false, "dump full snapshots with info")
	dim := flag.String("dim", "", "dimension name for the sweeps command")
	column := flag.String("column", "", "column name for the export command")
	out := flag.String("out", "", "output file for the export command")
	nameFilter := flag.String("filter", "", "name regexp for the list command")
	flag.Usage = usage
	flag.Parse()

	if *printVersion {
		fmt.Printf("This is sweepview version %s\n", sweepview.Build.Version)
		fmt.Printf("Git commit hash: %s\n", githash)
		fmt.Printf("Build time: %s\n", buildDate)
		fmt.Printf("Built on go version %s\n", runtime.Version())
		os.Exit(0)
	}
	if flag.NArg() < 2 {
		usage()
		os.Exit(2)
	}

	setupViper()

	if home, err := os.UserHomeDir(); err == nil {
		logdir := filepath.Join(home, ".sweepview", "logs")
		if pfname, err := makeFileExist(logdir, "problems.log"); err == nil {
			sweepview.ProblemLogger = startLogger(pfname)
			snapshot.ProblemLogger = sweepview.ProblemLogger
		}
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	var err error
	switch cmd {
	case "list":
		err = runList(args[0], *nameFilter)
	case "info":
		err = runInfo(args, *verbose || viper.GetBool("Verbose"))
	case "sweeps":
		err = runSweeps(args, *dim)
	case "export":
		err = runExport(args, *column, *out)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "sweepview %s: %s\n", cmd, err)
		os.Exit(1)
	}
}

func runList(base, filter string) error {
	opts := explore.ListOptions{}
	if filter != "" {
		re, err := regexp.Compile(filter)
		if err != nil {
			return err
		}
		opts.NameFilter = re
	}
	if h := viper.GetInt("MaxAgeHours"); h > 0 {
		opts.MaxAge = time.Duration(h) * time.Hour
	}
	dirs, err := explore.DataDirs(base, opts)
	if err != nil {
		return err
	}
	for _, d := range dirs {
		fmt.Printf("%s\t%s\n", explore.DataMtime(base, d).Format("2006-01-02 15:04:05"), d)
	}
	return nil
}

func runInfo(dirs []string, verbose bool) error {
	for _, dir := range dirs {
		d, err := sweepview.Open(dir, sweepview.WithComments())
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d rows, file %s\n", d.Name(), d.NumRows(), d.Filename())
		for _, name := range d.DimensionNames() {
			c, _ := d.ColumnInfo(name)
			fmt.Printf("  %-30s %-12s (%s)\n", name, c.Dtype, c.Units)
		}
		if f := d.Footer(); f.EndedAt != nil {
			fmt.Printf("  measurement ended %s, %d snapshot diffs\n", f.EndedAt, len(f.DiffRows))
		} else {
			fmt.Printf("  no footer: file is live or the writer crashed\n")
		}
		if verbose {
			spew.Dump(d.SnapshotAt(0))
		}
	}
	return nil
}

func runSweeps(dirs []string, dim string) error {
	if dim == "" {
		return fmt.Errorf("need -dim")
	}
	v, err := openView(dirs)
	if err != nil {
		return err
	}
	sweeps, err := v.DivideIntoSweeps(dim, nil)
	if err != nil {
		return err
	}
	for i, s := range sweeps {
		fmt.Printf("sweep %d: rows [%d, %d)\n", i, s.Start, s.End)
	}
	return nil
}

func runExport(dirs []string, column, out string) error {
	if column == "" || out == "" {
		return fmt.Errorf("need -column and -out")
	}
	v, err := openView(dirs)
	if err != nil {
		return err
	}
	c, err := v.Column(column)
	if err != nil {
		return err
	}
	return npyexport.WriteColumn(out, c)
}

func openView(dirs []string) (*sweepview.View, error) {
	datasets := make([]*sweepview.Dataset, 0, len(dirs))
	for _, dir := range dirs {
		d, err := sweepview.Open(dir)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, d)
	}
	return sweepview.NewView(datasets...), nil
}
