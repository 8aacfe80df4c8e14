// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"

	"github.com/clrlite/clrlite/pe"
	"github.com/spf13/cobra"
)

func prettyPrint(buff []byte) string {
	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, buff, "", "\t"); err != nil {
		log.Println("JSON parse error: ", err)
		return string(buff)
	}
	return prettyJSON.String()
}

func newDumpCmd() *cobra.Command {
	var wantCLR bool
	var wantDosHeader bool
	var wantNTHeader bool
	var wantSections bool

	cmd := &cobra.Command{
		Use:   "dump <file.exe>",
		Short: "Dump parsed PE/CLI structures as JSON",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			filename := args[0]

			f, err := pe.New(filename, &pe.Options{})
			if err != nil {
				log.Printf("Error while opening file: %s, reason: %s", filename, err)
				return
			}

			if err := f.Parse(); err != nil {
				log.Printf("Error while parsing file: %s, reason: %s", filename, err)
				return
			}

			if wantDosHeader {
				b, _ := json.Marshal(f.DOSHeader)
				fmt.Println(prettyPrint(b))
			}
			if wantNTHeader {
				b, _ := json.Marshal(f.NtHeader)
				fmt.Println(prettyPrint(b))
			}
			if wantSections {
				b, _ := json.Marshal(f.Sections)
				fmt.Println(prettyPrint(b))
			}
			if wantCLR {
				b, _ := json.Marshal(f.CLR)
				fmt.Println(prettyPrint(b))
			}
		},
	}

	cmd.Flags().BoolVar(&wantDosHeader, "dosheader", false, "dump DOS header")
	cmd.Flags().BoolVar(&wantNTHeader, "ntheader", false, "dump NT header")
	cmd.Flags().BoolVar(&wantSections, "sections", false, "dump section headers")
	cmd.Flags().BoolVar(&wantCLR, "clr", false, "dump parsed CLR metadata")

	return cmd
}
