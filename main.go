// elMap: a mapper execution engine for sequencing pipelines.
// Copyright (c) 2026 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elmap/blob/master/LICENSE.txt>.

// elMap runs external short-read aligners (Bowtie, Bowtie2, BWA, STAR
// and Minimap2) behind one execution model, streaming reads into them
// through named pipes and collecting their SAM output.
//
// Please see https://github.com/exascience/elmap for a documentation
// of the tool, and below (and/or
// https://godoc.org/github.com/ExaScience/elmap) for the API
// documentation.
package main

import (
	"fmt"
	"os"

	"github.com/exascience/elmap/cmd"
)

func printHelp() {
	fmt.Fprintln(os.Stderr, "Available commands: map, index")
	fmt.Fprint(os.Stderr, "\n", cmd.MapHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.IndexHelp)
}

func main() {
	fmt.Fprintln(os.Stderr, cmd.ProgramMessage)
	if len(os.Args) < 2 {
		cmd.Logger().Error("Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, cmd.HelpMessage+"\n")
		printHelp()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "map":
		err = cmd.Map()
	case "index":
		err = cmd.Index()
	case "help", "-help", "--help", "-h", "--h":
		printHelp()
	default:
		cmd.Logger().Error("Unknown command", "command", os.Args[1])
		printHelp()
		os.Exit(1)
	}
	if err != nil {
		cmd.Logger().Error(err.Error())
		os.Exit(1)
	}
}
