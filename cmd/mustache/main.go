package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/partario/mustache"
)

var rootCmd = &cobra.Command{
	Use: "mustache [--layout template] [data] template",
	Example: `  $ mustache data.yml template.mustache
  $ cat data.yml | mustache template.mustache
  $ mustache --layout wrapper.mustache data template.mustache
  $ mustache --override over.yml data.yml template.mustache
  $ mustache --delimiters '<% %>' data.yml template.mustache
  $ mustache --stream data.yml huge-template.mustache`,
	Args: cobra.RangeArgs(0, 2),
	Run: func(cmd *cobra.Command, args []string) {
		err := run(cmd, args)
		if err != nil {
			fmt.Printf("Error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}
var layoutFile string
var overrideFile string
var delimiters string
var stream bool
var maxRecursion int

func main() {
	rootCmd.Flags().StringVar(&layoutFile, "layout", "", "location of layout file")
	rootCmd.Flags().StringVar(&overrideFile, "override", "", "location of data.yml override yml")
	rootCmd.Flags().StringVar(&delimiters, "delimiters", "", "starting delimiter pair, e.g. \"<% %>\"")
	rootCmd.Flags().BoolVar(&stream, "stream", false, "render in bounded-memory streaming mode (disables partials)")
	rootCmd.Flags().IntVar(&maxRecursion, "max-recursion", 0, "bound lambda re-render nesting (0 uses the default of 100)")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Usage()
	}

	var data interface{}
	var templatePath string
	if len(args) == 1 {
		var err error
		data, err = parseDataFromStdIn()
		if err != nil {
			return err
		}
		templatePath = args[0]
	} else {
		var err error
		data, err = parseDataFromFile(args[0])
		if err != nil {
			return err
		}
		templatePath = args[1]
	}

	if overrideFile != "" {
		override, err := parseDataFromFile(overrideFile)
		if err != nil {
			return err
		}
		for k, v := range override.(map[interface{}]interface{}) {
			data.(map[interface{}]interface{})[k] = v
		}
	}
	opts := mustache.Options{MaxRecursion: maxRecursion}
	if delimiters != "" {
		parts := strings.SplitN(delimiters, " ", 2)
		if len(parts) != 2 {
			return fmt.Errorf("--delimiters expects two tokens separated by a space, got %q", delimiters)
		}
		opts.StartDelimiter, opts.EndDelimiter = parts[0], parts[1]
	}

	if stream {
		if layoutFile != "" {
			return fmt.Errorf("--stream and --layout cannot be combined")
		}
		tmplData, err := ioutil.ReadFile(templatePath)
		if err != nil {
			return err
		}
		return mustache.RenderStream(os.Stdout, string(tmplData), opts, data)
	}

	var output string
	var err error
	if layoutFile != "" {
		layoutTmpl, lerr := mustache.ParseFileOptions(layoutFile, nil, opts)
		if lerr != nil {
			return lerr
		}
		tmpl, terr := mustache.ParseFileOptions(templatePath, nil, opts)
		if terr != nil {
			return terr
		}
		output, err = tmpl.RenderInLayout(layoutTmpl, data)
	} else {
		tmpl, terr := mustache.ParseFileOptions(templatePath, nil, opts)
		if terr != nil {
			return terr
		}
		output, err = tmpl.Render(data)
	}
	if err != nil {
		return err
	}
	fmt.Print(output)
	return nil
}

func parseDataFromStdIn() (interface{}, error) {
	b, err := ioutil.ReadAll(os.Stdin)
	if err != nil {
		return nil, err
	}
	var data interface{}
	if err := yaml.Unmarshal(b, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func parseDataFromFile(filePath string) (interface{}, error) {
	b, err := ioutil.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var data interface{}
	if err := yaml.Unmarshal(b, &data); err != nil {
		return nil, err
	}
	return data, nil
}
