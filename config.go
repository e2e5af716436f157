// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/commitsync/commitsyncd/internal/chainsync"
	"github.com/commitsync/commitsyncd/internal/field"
	"github.com/commitsync/commitsyncd/internal/proof"
	"github.com/commitsync/commitsyncd/internal/retry"
	"github.com/commitsync/commitsyncd/internal/version"
	"github.com/commitsync/commitsyncd/sampleconfig"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "commitsyncd.conf"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "commitsyncd.log"
	defaultBlobsDirname   = "blobs"
	defaultLogLevel       = "info"
	defaultListen         = "0.0.0.0:8001"
	defaultProofType      = "plonky2"
	defaultRequestTimeout = 8 * time.Second
)

var (
	defaultHomeDir    = dcrutil.AppDataDir("commitsyncd", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
)

// config defines the configuration options for commitsyncd.
//
// See loadConfig for details on the configuration load process.
type config struct {
	// General application behavior.
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	HomeDir     string `short:"A" long:"appdata" description:"Path to application home directory" env:"COMMITSYNCD_APPDATA"`
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`

	// Chain sources.
	BeaconURL      string        `long:"beaconurl" description:"URL of the consensus node beacon API" env:"BEACON_URL"`
	RPCURL         string        `long:"rpcurl" description:"URL of the execution node JSON-RPC API" env:"RPC_URL"`
	GenesisSlot    uint64        `long:"genesisslot" description:"First slot to process" env:"DO_GENESIS_SLOT"`
	ToAddr         string        `long:"toaddr" description:"Address commit transactions are sent to" env:"TO_ADDR"`
	RequestRate    float64       `long:"requestrate" description:"Max outbound requests per second (0 = unlimited)" env:"REQUEST_RATE"`
	RequestTimeout time.Duration `long:"requesttimeout" description:"Timeout of a single outbound request"`

	// Retry policy of outbound requests.
	MaxRetries      int           `long:"maxretries" description:"Retries of a failed outbound request"`
	RetryBase       time.Duration `long:"retrybase" description:"Delay before the first retry"`
	RetryMultiplier float64       `long:"retrymultiplier" description:"Growth factor of the delay between retries"`

	// Head following.
	HeadPollDelay    time.Duration `long:"headpolldelay" description:"Time waited before polling the head once synced"`
	HeadPollInterval time.Duration `long:"headpollinterval" description:"Time between head polls while waiting for a slot"`

	// Blob cache.
	BlobsPath      string `long:"blobspath" description:"Directory of the blob cache" env:"BLOBS_PATH"`
	ProcessedCache uint32 `long:"processedcache" description:"Number of processed blob hashes remembered"`

	// Proof verification.
	ProofType   string `long:"prooftype" description:"Proving system commits are posted with {plonky2, groth16}" env:"PROOF_TYPE"`
	VerifierURL string `long:"verifierurl" description:"URL of the plonky2 verifier service" env:"VERIFIER_URL"`
	Groth16VK   string `long:"groth16vk" description:"Path to the groth16 verifying key" env:"GROTH16_VK"`
	VDSRoot     string `long:"vdsroot" description:"Verifier data set root as hex" env:"VDS_ROOT"`

	// Query service.
	Listen string `long:"listen" description:"Interface/port the query service listens on" env:"LISTEN"`

	// Logging and debug options.
	LogDir        string `long:"logdir" description:"Directory to log output"`
	NoFileLogging bool   `long:"nofilelogging" description:"Disable file logging"`
	DebugLevel    string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	Profile       string `long:"profile" description:"Enable HTTP profiling on given [addr:]port -- NOTE port must be between 1024 and 65536"`

	// The following fields are derived from the above fields by loadConfig.
	toAddr    common.Address
	proofKind proof.Kind
	vdsRoot   chainhash.Hash
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

	// Expand initial ~ to the current user's home directory, or ~otheruser
	// to otheruser's home directory.  On Windows, both forward and backward
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

// createDefaultConfigFile creates the config file at the provided path with
// the commented example config.
func createDefaultConfigFile(destPath string) error {
	err := os.MkdirAll(filepath.Dir(destPath), 0700)
	if err != nil {
		return err
	}
	return os.WriteFile(destPath, []byte(sampleconfig.Commitsyncd()), 0600)
}

// parseHashHex parses a hash given as hex in plain byte order with an
// optional 0x prefix.
func parseHashHex(s string) (chainhash.Hash, error) {
	var h chainhash.Hash
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return h, err
	}
	if len(b) != chainhash.HashSize {
		return h, fmt.Errorf("%d bytes instead of %d", len(b),
			chainhash.HashSize)
	}
	copy(h[:], b)
	return h, nil
}

// newConfigParser returns a new command line flags parser.
func newConfigParser(cfg *config, options flags.Options) *flags.Parser {
	return flags.NewParser(cfg, options)
}

// defaultConfig returns the configuration with every default applied.
func defaultConfig() config {
	policy := retry.DefaultPolicy()
	return config{
		HomeDir:          defaultHomeDir,
		ConfigFile:       defaultConfigFile,
		DebugLevel:       defaultLogLevel,
		Listen:           defaultListen,
		ProofType:        defaultProofType,
		RequestTimeout:   defaultRequestTimeout,
		MaxRetries:       policy.MaxRetries,
		RetryBase:        policy.BaseDelay,
		RetryMultiplier:  policy.Multiplier,
		HeadPollDelay:    chainsync.DefaultHeadPollDelay,
		HeadPollInterval: chainsync.DefaultHeadPollInterval,
		ProcessedCache:   chainsync.DefaultProcessedCacheSize,
	}
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
// Every option mirrored by an environment variable takes the variable's value
// when the option is not otherwise specified.  The above results in
// commitsyncd functioning properly without any config settings while still
// allowing the user to override settings with config files and command line
// options.  Command line options always take precedence.
func loadConfig(appName string) (*config, []string, error) {
	// Default config.
	cfg := defaultConfig()

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.  Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := cfg
	preParser := newConfigParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
	}

	// Show the version and exit if the version flag was specified.
	if preCfg.ShowVersion {
		fmt.Printf("%s version %s (Go version %s %s/%s)\n", appName,
			version.String(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	// Update the home directory if specified.  Since the home directory is
	// updated, other variables need to be updated to reflect the new
	// changes.
	if preCfg.HomeDir != "" {
		cfg.HomeDir = cleanAndExpandPath(preCfg.HomeDir)
		if preCfg.ConfigFile == defaultConfigFile {
			defaultConfigFile = filepath.Join(cfg.HomeDir,
				defaultConfigFilename)
			preCfg.ConfigFile = defaultConfigFile
			cfg.ConfigFile = defaultConfigFile
		} else {
			cfg.ConfigFile = preCfg.ConfigFile
		}
	}

	// Create a default config file when one does not exist and the user did
	// not specify an override.
	if preCfg.ConfigFile == defaultConfigFile {
		if _, err := os.Stat(preCfg.ConfigFile); os.IsNotExist(err) {
			err := createDefaultConfigFile(preCfg.ConfigFile)
			if err != nil {
				str := fmt.Sprintf("failed to create a default config "+
					"file: %v", err)
				return nil, nil, errSuppressUsage(str)
			}
		}
	}

	// Load additional config from file.
	var configFileError error
	parser := newConfigParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		var e *os.PathError
		if !errors.As(err, &e) {
			err = fmt.Errorf("error parsing config file: %w", err)
			return nil, nil, err
		}
		configFileError = err
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		return nil, nil, err
	}

	// Create the home directory if it doesn't already exist.
	funcName := "loadConfig"
	err = os.MkdirAll(cfg.HomeDir, 0700)
	if err != nil {
		str := "%s: failed to create home directory: %w"
		err := fmt.Errorf(str, funcName, err)
		return nil, nil, errSuppressUsage(err.Error())
	}

	// Set the default log and blob directories relative to the home
	// directory unless specified.
	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(cfg.HomeDir, defaultLogDirname)
	}
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	if cfg.BlobsPath == "" {
		cfg.BlobsPath = filepath.Join(cfg.HomeDir, defaultBlobsDirname)
	}
	cfg.BlobsPath = cleanAndExpandPath(cfg.BlobsPath)
	cfg.Groth16VK = cleanAndExpandPath(cfg.Groth16VK)

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	// Initialize log rotation.  After log rotation has been initialized,
	// the logger variables may be used.
	if !cfg.NoFileLogging {
		initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))
	}

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("%s: %w", funcName, err)
		return nil, nil, err
	}

	// Validate the derived configuration.
	if err := validateConfig(&cfg); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", funcName, err)
	}

	// Warn about missing config file only after all other configuration is
	// done.  This prevents the warning on help messages and invalid options.
	// Note this should go directly before the return.
	if configFileError != nil {
		csynLog.Warnf("%v", configFileError)
	}

	return &cfg, remainingArgs, nil
}

// validateConfig ensures the options are consistent and fills the derived
// fields.
func validateConfig(cfg *config) error {
	if cfg.BeaconURL == "" {
		return errors.New("the beacon API URL must be set with --beaconurl " +
			"or BEACON_URL")
	}
	if cfg.RPCURL == "" {
		return errors.New("the execution RPC URL must be set with " +
			"--rpcurl or RPC_URL")
	}

	if !common.IsHexAddress(cfg.ToAddr) {
		return fmt.Errorf("the recipient address %q is invalid", cfg.ToAddr)
	}
	cfg.toAddr = common.HexToAddress(cfg.ToAddr)

	if cfg.RequestRate < 0 {
		return fmt.Errorf("the request rate %v may not be negative",
			cfg.RequestRate)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("the request timeout %v must be positive",
			cfg.RequestTimeout)
	}
	if cfg.MaxRetries < 0 {
		return fmt.Errorf("the number of retries %d may not be negative",
			cfg.MaxRetries)
	}
	if cfg.RetryMultiplier < 1 {
		return fmt.Errorf("the retry multiplier %v must be at least 1",
			cfg.RetryMultiplier)
	}
	if cfg.HeadPollDelay <= 0 || cfg.HeadPollInterval <= 0 {
		return errors.New("the head poll delay and interval must be " +
			"positive")
	}

	kind, err := proof.ParseKind(cfg.ProofType)
	if err != nil {
		return err
	}
	cfg.proofKind = kind
	switch kind {
	case proof.KindPlonky2:
		if cfg.VerifierURL == "" {
			return errors.New("plonky2 proofs require the verifier " +
				"service URL set with --verifierurl")
		}
	case proof.KindGroth16:
		if cfg.Groth16VK == "" {
			return errors.New("groth16 proofs require the verifying key " +
				"set with --groth16vk")
		}
	}

	if cfg.VDSRoot != "" {
		root, err := parseHashHex(cfg.VDSRoot)
		if err != nil {
			return fmt.Errorf("the verifier data set root %q is invalid: "+
				"%w", cfg.VDSRoot, err)
		}
		if !field.IsFieldHash(&root) {
			return fmt.Errorf("the verifier data set root %q is not a "+
				"field hash", cfg.VDSRoot)
		}
		cfg.vdsRoot = root
	}

	if _, _, err := net.SplitHostPort(cfg.Listen); err != nil {
		return fmt.Errorf("the listen address %q is invalid: %w",
			cfg.Listen, err)
	}
	return nil
}

// retryPolicy returns the retry policy described by the configuration.
func (cfg *config) retryPolicy() retry.Policy {
	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.MaxRetries
	policy.BaseDelay = cfg.RetryBase
	policy.Multiplier = cfg.RetryMultiplier
	return policy
}
