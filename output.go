package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"dva/models"
	"dva/processor"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

func printPaths(w io.Writer, files []models.DataFile) {
	for _, p := range processor.RemotePaths(files) {
		fmt.Fprintln(w, p)
	}
}

// printJSON writes the server's own metadata of every file
func printJSON(w io.Writer, files []models.DataFile) error {
	b, err := json.MarshalIndent(files, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode file list: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printTable(w io.Writer, files []models.DataFile) {
	paths := processor.RemotePaths(files)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Size", "Checksum", "Path"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetHeaderLine(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)

	for i, f := range files {
		sum := f.Checksum.Value
		if f.Checksum.Type != "" {
			sum = strings.ToLower(f.Checksum.Type) + ":" + sum
		}
		table.Append([]string{
			fmt.Sprint(f.ID),
			humanize.Bytes(uint64(f.Filesize)),
			sum,
			paths[i],
		})
	}
	table.Render()
}
