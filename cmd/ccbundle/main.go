// Command ccbundle expands a single C/C++ translation unit and everything
// it #includes into one self-contained file, suitable for pasting into a
// judge that only accepts a single source file.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/ikanago/cxx-bundle/internal/bundler"
	"github.com/ikanago/cxx-bundle/internal/cache"
	"github.com/ikanago/cxx-bundle/internal/common"
)

func failedStart(err interface{}) {
	_, _ = fmt.Fprintln(os.Stderr, "[ccbundle]", err)
	os.Exit(1)
}

func main() {
	showVersionAndExit := common.CmdEnvBool("Show version and exit.", false,
		"version", "")
	showVersionAndExitShort := common.CmdEnvBool("Show version and exit.", false,
		"v", "")
	cxx := common.CmdEnvString("The compiler driver to validate and to shell out to for comment stripping.\nMust be g++ or a binary compatible with it.", "g++",
		"cxx", "CXX")
	includeDirs := common.CmdEnvStringList("A directory to search for #include \"...\" headers not found relative\nto the including file. May be repeated.",
		"I", "")
	output := common.CmdEnvString("Where to write the bundled output. Defaults to stdout.", "",
		"o", "CXX_BUNDLE_OUT")
	verbose := common.CmdEnvInt("Logger verbosity level for INFO (-1 off, default 0, max 2).\nErrors are logged always.", 0,
		"verbose", "CXX_BUNDLE_VERBOSITY")
	logFileName := common.CmdEnvString("A filename to log to, stderr by default.", "",
		"log-filename", "CXX_BUNDLE_LOG_FILENAME")

	common.ParseCmdFlagsCombiningWithEnv()

	if *showVersionAndExit || *showVersionAndExitShort {
		fmt.Println(common.GetVersion())
		os.Exit(0)
	}

	logger, err := common.MakeLogger(*logFileName, *verbose)
	if err != nil {
		failedStart(err)
	}

	positional := flag.Args()
	if len(positional) != 1 {
		failedStart("expected exactly one input file, got " + fmt.Sprint(len(positional)))
	}
	root := positional[0]

	logger.Info(1, "bundling", root, "with", *cxx)

	b, err := bundler.New(*cxx, *includeDirs, cache.New())
	if err != nil {
		var bundleErr *bundler.BundleError
		if errors.As(err, &bundleErr) {
			logger.Error(bundleErr.Error())
		}
		failedStart(err)
	}

	if err := b.Update(root); err != nil {
		logger.Error(err.Error())
		failedStart(err)
	}

	out := b.Bytes()
	if *output == "" || *output == "-" {
		if _, err := os.Stdout.Write(out); err != nil {
			failedStart(err)
		}
		return
	}
	if err := os.WriteFile(*output, out, 0644); err != nil {
		failedStart(err)
	}
}
