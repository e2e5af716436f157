// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
commitsyncd follows the consensus chain slot by slot, extracts the commits
posted as blobs to a recipient address, verifies their proofs and maintains
the resulting ledger of created items and spent nullifiers.  The ledger is
served over HTTP.

The long form of all options (except -C) can be specified in a configuration
file that is automatically parsed when commitsyncd starts up.  By default, the
configuration file is located at ~/.commitsyncd/commitsyncd.conf on
POSIX-style operating systems and %LOCALAPPDATA%\commitsyncd\commitsyncd.conf on
Windows.  A commented default configuration file is created there on first
start.  The chain source options may also be set through the environment
variables noted below.

Usage:

	commitsyncd [OPTIONS]

Application Options:

	-V, --version            Display version information and exit
	-A, --appdata=           Path to application home directory
	-C, --configfile=        Path to configuration file
	    --beaconurl=         URL of the consensus node beacon API [$BEACON_URL]
	    --rpcurl=            URL of the execution node JSON-RPC API [$RPC_URL]
	    --genesisslot=       First slot to process [$DO_GENESIS_SLOT]
	    --toaddr=            Address commit transactions are sent to [$TO_ADDR]
	    --requestrate=       Max outbound requests per second (0 = unlimited)
	                         [$REQUEST_RATE]
	    --requesttimeout=    Timeout of a single outbound request (8s)
	    --maxretries=        Retries of a failed outbound request (6)
	    --retrybase=         Delay before the first retry (500ms)
	    --retrymultiplier=   Growth factor of the delay between retries (2)
	    --headpolldelay=     Time waited before polling the head once synced
	                         (5s)
	    --headpollinterval=  Time between head polls while waiting for a slot
	                         (1s)
	    --blobspath=         Directory of the blob cache [$BLOBS_PATH]
	    --processedcache=    Number of processed blob hashes remembered (4096)
	    --prooftype=         Proving system commits are posted with {plonky2,
	                         groth16} (plonky2) [$PROOF_TYPE]
	    --verifierurl=       URL of the plonky2 verifier service [$VERIFIER_URL]
	    --groth16vk=         Path to the groth16 verifying key [$GROTH16_VK]
	    --vdsroot=           Verifier data set root as hex [$VDS_ROOT]
	    --listen=            Interface/port the query service listens on
	                         (0.0.0.0:8001) [$LISTEN]
	    --logdir=            Directory to log output
	    --nofilelogging      Disable file logging
	-d, --debuglevel=        Logging level for all subsystems {trace, debug,
	                         info, warn, error, critical} -- You may also
	                         specify <subsystem>=<level>,<subsystem2>=<level>,...
	                         to set the log level for individual subsystems --
	                         Use show to list available subsystems (info)
	    --profile=           Enable HTTP profiling on given [addr:]port -- NOTE
	                         port must be between 1024 and 65536

Help Options:

	-h, --help               Show this help message

Query service:

	GET /created_item/{item}        inclusion proof of a created item
	GET /created_items              every created item
	GET /created_items_root         latest created items root
	GET /created_items_root/{epoch} created items root of an epoch
	GET /nullifier/{nullifier}      whether a nullifier was spent
	GET /info                       version and sync status
	GET /metrics                    prometheus metrics

Hashes are hex in plain byte order with an optional 0x prefix.
*/
package main
