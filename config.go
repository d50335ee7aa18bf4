// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/crypto/rand"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/eqminer/equihash"
	"github.com/decred/eqminer/internal/mining"
	"github.com/decred/eqminer/internal/mining/cpuminer"
	"github.com/decred/eqminer/internal/version"
	"github.com/decred/eqminer/sampleconfig"
	"github.com/decred/slog"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "eqminer.conf"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "eqminer.log"
	defaultLogSize        = "10M"
	defaultN              = 96
	defaultK              = 5
	defaultDifficulty     = 3
	defaultWorkers        = 1
)

var (
	defaultHomeDir    = dcrutil.AppDataDir("eqminer", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// config defines the configuration options for eqminer.
//
// See loadConfig for details on the configuration load process.
type config struct {
	// General application behavior.
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	HomeDir     string `short:"A" long:"appdata" description:"Path to application home directory" env:"EQMINER_APPDATA"`
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`

	// Mining parameters.
	N          uint32 `short:"n" long:"n" description:"Equihash n parameter (hash output bit width)"`
	K          uint32 `short:"k" long:"k" description:"Equihash k parameter (number of collision rounds)"`
	Difficulty uint32 `short:"d" long:"difficulty" description:"Number of leading zero bits a block hash must have"`
	Workers    int32  `long:"workers" description:"Number of nonces to solve concurrently"`
	MaxBlocks  uint32 `long:"maxblocks" description:"Stop after mining this many blocks (0 to run until interrupted)"`
	Genesis    string `long:"genesis" description:"Hex encoded hash the first mined block builds on, or random for a random hash (default: SHA-256 of the empty string)"`
	Verbose    []bool `short:"v" long:"verbose" description:"Increase solver output (once for per-round debug output, twice to also dump sorted candidates)"`
	NoProgress bool   `long:"noprogress" description:"Do not draw the solver progress bar on interactive terminals"`

	// Logging.
	LogDir        string `long:"logdir" description:"Directory to log output"`
	LogSize       string `long:"logsize" description:"Maximum size of log file before it is rotated"`
	NoFileLogging bool   `long:"nofilelogging" description:"Disable file logging"`
	DebugLevel    string `long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`

	// Profiling options.
	Profile    string `long:"profile" description:"Enable HTTP profiling on given [addr:]port -- NOTE port must be between 1024 and 65535"`
	CPUProfile string `long:"cpuprofile" description:"Write CPU profile to the specified file"`

	// The following fields are derived from the above fields.
	params    equihash.Params
	prevHash  chainhash.Hash
	logSizeKB int64
	verbosity int
}

// errSuppressUsage signifies that an error that happened during the initial
// configuration phase should suppress the usage output since it was not caused
// by the user.
type errSuppressUsage string

// Error implements the error interface.
func (e errSuppressUsage) Error() string {
	return string(e)
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Nothing to do when no path is given.
	if path == "" {
		return path
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows cmd.exe-style
	// %VARIABLE%, but the variables can still be expanded via POSIX-style
	// $VARIABLE.
	path = os.ExpandEnv(path)

	if !strings.HasPrefix(path, "~") {
		return filepath.Clean(path)
	}

	// Expand initial ~ to the current user's home directory, or ~otheruser to
	// otheruser's home directory.  On Windows, both forward and backward
	// slashes can be used.
	path = path[1:]

	var pathSeparators string
	if runtime.GOOS == "windows" {
		pathSeparators = string(os.PathSeparator) + "/"
	} else {
		pathSeparators = string(os.PathSeparator)
	}

	userName := ""
	if i := strings.IndexAny(path, pathSeparators); i != -1 {
		userName = path[:i]
		path = path[i:]
	}

	homeDir := ""
	var u *user.User
	var err error
	if userName == "" {
		u, err = user.Current()
	} else {
		u, err = user.Lookup(userName)
	}
	if err == nil {
		homeDir = u.HomeDir
	}
	// Fallback to CWD if user lookup fails or user has no home directory.
	if homeDir == "" {
		homeDir = "."
	}

	return filepath.Join(homeDir, path)
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	_, ok := slog.LevelFromString(logLevel)
	return ok
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	// Convert the subsystemLoggers map keys to a slice.
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}

	// Sort the subsystems for stable display.
	sort.Strings(subsystems)
	return subsystems
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		// Validate debug log level.
		if !validLogLevel(debugLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		// Change the logging level for all subsystems.
		setLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "the specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := subsystemLoggers[subsysID]; !exists {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsystems %v"
			return fmt.Errorf(str, subsysID, supportedSubsystems())
		}

		// Validate log level.
		if !validLogLevel(logLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		setLogLevel(subsysID, logLevel)
	}

	return nil
}

// parseLogSize parses a log size of the form <number>[K|M|G] into kibibytes.
// A plain number is interpreted as kibibytes.
func parseLogSize(s string) (int64, error) {
	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "K"):
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "M"):
		multiplier = 1 << 10
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "G"):
		multiplier = 1 << 20
		s = s[:len(s)-1]
	}
	size, err := strconv.ParseInt(s, 10, 64)
	if err != nil || size <= 0 {
		return 0, fmt.Errorf("invalid log size %q", s)
	}
	return size * multiplier, nil
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// createDefaultConfigFile creates a config file at the provided path with the
// contents of the embedded sample configuration.
func createDefaultConfigFile(destPath string) error {
	// Create the destination directory if it does not exist.
	err := os.MkdirAll(filepath.Dir(destPath), 0700)
	if err != nil {
		return err
	}

	const perms = 0600
	return os.WriteFile(destPath, []byte(sampleconfig.Eqminer()), perms)
}

// newConfigParser returns a new command line flags parser.
func newConfigParser(cfg *config, options flags.Options) *flags.Parser {
	return flags.NewParser(cfg, options)
}

// loadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in eqminer functioning properly without any config settings
// while still allowing the user to override settings with config files and
// command line options.  Command line options always take precedence.
func loadConfig(appName string, args []string) (*config, []string, error) {
	// Default config.
	cfg := config{
		HomeDir:    defaultHomeDir,
		ConfigFile: defaultConfigFile,
		N:          defaultN,
		K:          defaultK,
		Difficulty: defaultDifficulty,
		Workers:    defaultWorkers,
		LogDir:     defaultLogDir,
		LogSize:    defaultLogSize,
		DebugLevel: defaultLogLevel,
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.  Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := cfg
	preParser := newConfigParser(&preCfg, flags.HelpFlag)
	_, err := preParser.ParseArgs(args)
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			return nil, nil, err
		}
	}

	// Show the version and exit if the version flag was specified.
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
	if preCfg.ShowVersion {
		fmt.Printf("%s version %s (Go version %s %s/%s)\n", appName,
			version.String(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	// Update the home directory if specified.  Since the home directory is
	// updated, other variables need to be updated to reflect the new changes.
	if preCfg.HomeDir != "" {
		cfg.HomeDir, _ = filepath.Abs(cleanAndExpandPath(preCfg.HomeDir))

		if preCfg.ConfigFile == defaultConfigFile {
			defaultConfigFile = filepath.Join(cfg.HomeDir,
				defaultConfigFilename)
			preCfg.ConfigFile = defaultConfigFile
			cfg.ConfigFile = defaultConfigFile
		} else {
			cfg.ConfigFile = preCfg.ConfigFile
		}
		if preCfg.LogDir == defaultLogDir {
			cfg.LogDir = filepath.Join(cfg.HomeDir, defaultLogDirname)
		} else {
			cfg.LogDir = preCfg.LogDir
		}
	}

	// Create a default config file when one does not exist and the user did
	// not specify an override.
	if preCfg.ConfigFile == defaultConfigFile && !fileExists(preCfg.ConfigFile) {
		err := createDefaultConfigFile(preCfg.ConfigFile)
		if err != nil {
			str := fmt.Sprintf("failed to create default config file: %v",
				err)
			return nil, nil, errSuppressUsage(str)
		}
	}

	// Load additional config from file.
	parser := newConfigParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		var e *os.PathError
		if !errors.As(err, &e) {
			err = fmt.Errorf("error parsing config file: %w", err)
			return nil, nil, err
		}
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}
	if len(remainingArgs) > 0 {
		str := "%s: unexpected arguments %v -- %s"
		err := fmt.Errorf(str, appName, remainingArgs, usageMessage)
		return nil, nil, err
	}

	// Create the home directory if it doesn't already exist.
	funcName := "loadConfig"
	err = os.MkdirAll(cfg.HomeDir, 0700)
	if err != nil {
		// Show a nicer error message if it's because a symlink is linked to a
		// directory that does not exist (probably because it's not mounted).
		var e *os.PathError
		if errors.As(err, &e) && os.IsExist(err) {
			if link, lerr := os.Readlink(e.Path); lerr == nil {
				str := "is symlink %s -> %s mounted?"
				err = fmt.Errorf(str, e.Path, link)
			}
		}

		str := "%s: failed to create home directory: %v"
		err := errSuppressUsage(fmt.Sprintf(str, funcName, err))
		return nil, nil, err
	}

	// Validate the Equihash parameters.
	cfg.params, err = equihash.NewParams(cfg.N, cfg.K)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", funcName, err)
	}

	// Parse the hash the first block builds on.
	cfg.prevHash = mining.GenesisHash
	switch cfg.Genesis {
	case "":
	case "random":
		rand.Read(cfg.prevHash[:])
	default:
		b, err := hex.DecodeString(cfg.Genesis)
		if err != nil || len(b) != chainhash.HashSize {
			str := "%s: the genesis hash %q is not %d hex encoded bytes"
			err := fmt.Errorf(str, funcName, cfg.Genesis, chainhash.HashSize)
			return nil, nil, err
		}
		copy(cfg.prevHash[:], b)
	}

	// Limit the number of workers to the range supported by the miner.
	if cfg.Workers < 1 || uint32(cfg.Workers) > cpuminer.MaxNumWorkers {
		str := "%s: the number of workers must be between 1 and %d -- " +
			"parsed [%d]"
		err := fmt.Errorf(str, funcName, cpuminer.MaxNumWorkers, cfg.Workers)
		return nil, nil, err
	}

	cfg.verbosity = len(cfg.Verbose)
	if cfg.verbosity > 2 {
		cfg.verbosity = 2
	}

	// Parse the maximum size of the log file before rotation.
	cfg.logSizeKB, err = parseLogSize(cfg.LogSize)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", funcName, err)
	}

	// Initialize log rotation.  After log rotation has been initialized, the
	// logger variables may be used.
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	if !cfg.NoFileLogging {
		logFile := filepath.Join(cfg.LogDir, defaultLogFilename)
		if err := initLogRotator(logFile, cfg.logSizeKB); err != nil {
			return nil, nil, errSuppressUsage(err.Error())
		}
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("%s: %w", funcName, err)
		return nil, nil, err
	}

	// Verbose solver output is logged at the debug level.
	if cfg.verbosity > 0 {
		setLogLevel("EQSH", "debug")
	}

	// Validate the profile address.
	if cfg.Profile != "" {
		cfg.Profile = portToLocalHostAddr(cfg.Profile)
		if err := validateProfileAddr(cfg.Profile); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", funcName, err)
		}
	}

	// Warn about missing config file only after all other configuration is
	// done.  This prevents the warning on help messages and invalid options.
	// Note this should go directly before the return.
	if !fileExists(cfg.ConfigFile) {
		eqmnLog.Warnf("Config file %s does not exist", cfg.ConfigFile)
	}

	return &cfg, remainingArgs, nil
}
