// Command goevm runs a single piece of EVM bytecode against an in-memory
// Host and reports how it finished.
//
// Usage:
//
//	goevm --code <hex> [flags]
//
// Flags:
//
//	--code        Init code / runtime bytecode, hex-encoded (required)
//	--input       Calldata, hex-encoded (default: empty)
//	--sender      Caller address, hex-encoded (default: 0x...0a)
//	--contract    Executing contract's own address, hex-encoded
//	--value       Value carried by the call, in wei, decimal (default: 0)
//	--gas         Gas limit charged against the Host's ledger
//	--maxsteps    Upper bound on Machine steps before giving up
//	--verbosity   Log level 0-5 (default: 3)
//	--version     Print version and exit
package main

import (
	"fmt"
	"os"

	"github.com/holiman/uint256"

	"github.com/rome-protocol/goevm/core/vm"
	"github.com/rome-protocol/goevm/log"
)

var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning an exit code. It accepts CLI
// arguments (without the program name) so it can be tested in isolation.
func run(args []string) int {
	cfg, exit, code := parseFlags(args)
	if exit {
		return code
	}

	logger := log.New(log.VerbosityToLevel(cfg.Verbosity)).Module("goevm")

	rc, err := cfg.resolve()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}

	host := vm.NewMemHost(vm.IstanbulConfig(), cfg.GasLimit)
	host.SetAccount(rc.Contract, rc.Code, uint256.Int{}, 0)
	host.SetAccount(rc.Sender, nil, rc.Value, 0)

	ctx := vm.Context{Address: rc.Contract, Caller: rc.Sender, ApparentValue: rc.Value}
	rt := vm.NewRuntime(rc.Code, rc.Input, ctx, vm.IstanbulConfig())

	logger.Info("starting run",
		"contract", rc.Contract.Hex(),
		"sender", rc.Sender.Hex(),
		"gas", cfg.GasLimit,
		"code_len", len(rc.Code),
	)

	steps, capture := rt.Run(cfg.MaxSteps, host)

	if capture.StepLimitReached {
		logger.Warn("step limit reached before completion", "steps", steps)
		fmt.Printf("StepLimitReached after %d steps\n", steps)
		return 1
	}

	logger.Info("run finished", "steps", steps, "exit", capture.Exit.String())
	fmt.Printf("%s\n", capture.Exit.String())
	fmt.Printf("gas left:    %d\n", host.GasLeft())
	fmt.Printf("return data: 0x%x\n", rt.MachineReturnData())

	if _, ok := capture.Exit.(vm.Succeed); !ok {
		return 1
	}
	return 0
}

// parseFlags parses CLI arguments into a runConfig. Returns the config,
// whether the caller should exit immediately, and the exit code.
func parseFlags(args []string) (runConfig, bool, int) {
	cfg := defaultRunConfig()
	fs := newFlagSet(&cfg)

	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cfg, true, 2
	}

	if *showVersion {
		fmt.Printf("goevm %s (commit %s)\n", version, commit)
		return cfg, true, 0
	}

	return cfg, false, 0
}

// newFlagSet creates a flag.FlagSet that binds all CLI flags to the given
// runConfig. The FlagSet uses ContinueOnError so callers control the
// error handling behavior.
func newFlagSet(cfg *runConfig) *flagSet {
	fs := newCustomFlagSet("goevm")
	fs.StringVar(&cfg.CodeHex, "code", cfg.CodeHex, "init code / runtime bytecode, hex-encoded")
	fs.StringVar(&cfg.InputHex, "input", cfg.InputHex, "calldata, hex-encoded")
	fs.StringVar(&cfg.Sender, "sender", cfg.Sender, "caller address, hex-encoded")
	fs.StringVar(&cfg.Contract, "contract", cfg.Contract, "executing contract's own address, hex-encoded")
	fs.StringVar(&cfg.ValueDec, "value", cfg.ValueDec, "value carried by the call, in wei, decimal")
	fs.Uint64Var(&cfg.GasLimit, "gas", cfg.GasLimit, "gas limit charged against the host's ledger")
	fs.Uint64Var(&cfg.MaxSteps, "maxsteps", cfg.MaxSteps, "upper bound on machine steps before giving up")
	fs.IntVar(&cfg.Verbosity, "verbosity", cfg.Verbosity, "log level 0-5 (0=silent, 5=trace)")
	return fs
}
