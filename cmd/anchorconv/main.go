package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/woozymasta/geoanchor/internal/config"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

type Options struct {
	Input     string `short:"i" long:"in"         description:"Input file path. Reads from stdin if empty"`
	Output    string `short:"o" long:"out"        description:"Output file path. Writes to stdout if empty"`
	Format    string `short:"f" long:"format"     description:"Output format for anchors" choice:"yaml" choice:"json" default:"yaml"`
	Model     string `short:"m" long:"model"      description:"Model used for features without a model property"`
	ToGeoJSON bool   `short:"r" long:"to-geojson" description:"Convert a scene configuration into GeoJSON instead"`
}

type anchorList struct {
	Anchors []config.Anchor `yaml:"anchors" json:"anchors"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Read Input
	var inputData []byte
	var err error

	if opts.Input != "" {
		inputData, err = os.ReadFile(opts.Input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading input file: %v\n", err)
			os.Exit(1)
		}
	} else {
		inputData, err = io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
			os.Exit(1)
		}
	}

	var (
		outputData []byte
		count      int
	)
	if opts.ToGeoJSON {
		outputData, count, err = toGeoJSON(inputData)
	} else {
		outputData, count, err = fromGeoJSON(inputData, opts.Model, opts.Format)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error converting: %v\n", err)
		os.Exit(1)
	}

	if opts.Output != "" {
		err = os.WriteFile(opts.Output, outputData, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Successfully converted %d anchors to %s\n", count, opts.Output)
	} else {
		fmt.Println(string(outputData))
	}
}

func fromGeoJSON(data []byte, model, format string) ([]byte, int, error) {
	anchors, err := config.AnchorsFromGeoJSON(data)
	if err != nil {
		return nil, 0, err
	}
	for i := range anchors {
		if anchors[i].Model == "" {
			anchors[i].Model = model
		}
	}

	list := anchorList{Anchors: anchors}
	var out []byte
	if format == "json" {
		out, err = json.MarshalIndent(list, "", "  ")
	} else {
		out, err = yaml.Marshal(list)
	}
	return out, len(anchors), err
}

func toGeoJSON(data []byte) ([]byte, int, error) {
	var list anchorList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, 0, err
	}

	fc := config.AnchorsToGeoJSON(list.Anchors)
	out, err := json.MarshalIndent(fc, "", "  ")
	return out, len(list.Anchors), err
}
