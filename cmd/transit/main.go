package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-transit/internal/coverage"
	"github.com/joeblew999/plat-transit/internal/server"
	"github.com/joeblew999/plat-transit/internal/service"
	"github.com/joeblew999/plat-transit/internal/stops"
)

// Options defines all CLI flags and env vars for the transit server.
// Flags: --host, --port, --data-dir, --web-dir, --config
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_WEB_DIR, SERVICE_CONFIG
type Options struct {
	Host    string `doc:"Host to bind to" default:"0.0.0.0"`
	Port    int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir string `doc:"Directory for datasets and the DuckDB file" default:".data"`
	WebDir  string `doc:"Path to web/ directory" default:"web"`
	Config  string `doc:"Optional YAML settings file"`
}

func newServer(opts *Options) *server.Server {
	srv, err := server.New(server.Config{
		Host:       opts.Host,
		Port:       fmt.Sprintf("%d", opts.Port),
		DataDir:    opts.DataDir,
		WebDir:     opts.WebDir,
		ConfigFile: opts.Config,
	})
	if err != nil {
		log.Fatalf("Startup error: %v", err)
	}
	return srv
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var srv *server.Server

		hooks.OnStart(func() {
			srv = newServer(opts)

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-transit server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Map:     %s/\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			if err := http.ListenAndServe(addr, srv); err != nil {
				log.Fatalf("Server error: %v", err)
			}
		})
		hooks.OnStop(func() {
			if srv != nil {
				srv.Close()
			}
		})
	})

	cli.Root().Use = "transit"
	cli.Root().Short = "Swiss population and public transport quality map"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := newServer(opts)
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// coverage subcommand: offline catchment report over two files
	coverageCmd := &cobra.Command{
		Use:   "coverage <population.csv> <stops.geojson>",
		Short: "Report the population within reach of the given stops",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			res, err := offlineCoverage(args[0], args[1])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			out, _ := json.MarshalIndent(res, "", "  ")
			fmt.Println(string(out))
		},
	}
	cli.Root().AddCommand(coverageCmd)

	cli.Run()
}

func offlineCoverage(cellsPath, stopsPath string) (coverage.Result, error) {
	f, err := os.Open(cellsPath)
	if err != nil {
		return coverage.Result{}, err
	}
	defer f.Close()
	cells, err := coverage.LoadCells(f)
	if err != nil {
		return coverage.Result{}, err
	}

	data, err := os.ReadFile(stopsPath)
	if err != nil {
		return coverage.Result{}, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return coverage.Result{}, fmt.Errorf("decoding %s: %w", stopsPath, err)
	}
	return coverage.Calculate(cells, stops.FromCollection(service.Classify(fc))), nil
}
