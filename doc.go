// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
eqminer is a toy proof-of-work chain miner built on the Equihash generalized
birthday problem.

Every block commits to the hash of the previous block, a nonce, and an
Equihash solution for the leaf hashes seeded with the previous block hash and
the nonce.  A block is only accepted when its double SHA-256 hash has at least
the configured number of leading zero bits.  Nonces are tried in increasing
order starting from zero for every block.

The long form of all of the options (except -C) can be specified in a
configuration file that is automatically parsed when eqminer starts up.  By
default, the configuration file is located at ~/.eqminer/eqminer.conf on
POSIX-style operating systems and %LOCALAPPDATA%\eqminer\eqminer.conf on
Windows.  The -C (--configfile) flag, as shown below, can be used to override
this location.

Usage:

	eqminer [OPTIONS]

Application Options:

	-V, --version        Display version information and exit
	-A, --appdata=       Path to application home directory
	-C, --configfile=    Path to configuration file
	-n, --n=             Equihash n parameter (hash output bit width)
	                     (default: 96)
	-k, --k=             Equihash k parameter (number of collision rounds)
	                     (default: 5)
	-d, --difficulty=    Number of leading zero bits a block hash must have
	                     (default: 3)
	    --workers=       Number of nonces to solve concurrently (default: 1)
	    --maxblocks=     Stop after mining this many blocks (0 to run until
	                     interrupted)
	    --genesis=       Hex encoded hash the first mined block builds on, or
	                     random for a random hash (default: SHA-256 of the
	                     empty string)
	-v, --verbose        Increase solver output (once for per-round debug
	                     output, twice to also dump sorted candidates)
	    --noprogress     Do not draw the solver progress bar on interactive
	                     terminals
	    --logdir=        Directory to log output
	    --logsize=       Maximum size of log file before it is rotated
	                     (default: 10M)
	    --nofilelogging  Disable file logging
	    --debuglevel=    Logging level for all subsystems {trace, debug, info,
	                     warn, error, critical} -- You may also specify
	                     <subsystem>=<level>,<subsystem2>=<level>,... to set
	                     the log level for individual subsystems -- Use show
	                     to list available subsystems (default: info)
	    --profile=       Enable HTTP profiling on given [addr:]port -- NOTE
	                     port must be between 1024 and 65535
	    --cpuprofile=    Write CPU profile to the specified file

Help Options:

	-h, --help           Show this help message
*/
package main
