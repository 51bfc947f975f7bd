/*
Copyright © 2024 the homog authors.
This file is part of homog.

homog is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

homog is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with homog.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package homogutil contains the command-line interface of homog.
package homogutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/homog"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to homog.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Data",
			usage: `
              Data is the path to the GSLIB point-set holding the station
              network. Its variables are x, y, time, station and the
              climate variable, in that order.`,
			shorthand:  "d",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), orderCmd.Flags()},
		},
		{
			name: "Header",
			usage: `
              Header specifies whether the input point-sets have a GSLIB
              header.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), orderCmd.Flags(), batchCmd.PersistentFlags()},
		},
		{
			name: "ND",
			usage: `
              ND is the value that marks missing data in the input
              point-sets.`,
			defaultVal: -999.9,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), orderCmd.Flags(), batchCmd.PersistentFlags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir is the directory results and simulation files are
              written to. It is created if it does not exist.`,
			shorthand:  "o",
			defaultVal: "homog_output",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.PersistentFlags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the log file. The default is homog.log in
              the output directory.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.PersistentFlags()},
		},
		{
			name: "MetricsFile",
			usage: `
              MetricsFile, if set, is the path where counts of detections,
              filled values and iteration times are written in the
              Prometheus text format when the run ends.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.PersistentFlags()},
		},
		{
			name: "Simulator.Exe",
			usage: `
              Simulator.Exe is the direct sequential simulation program.`,
			defaultVal: "dss",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.PersistentFlags()},
		},
		{
			name: "Simulator.Template",
			usage: `
              Simulator.Template is the path to the simulation parameter
              template: a TOML file or, if its extension is .par, a
              parameter file in the simulator's own format. The data file,
              variogram and time axis are set for each run.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.PersistentFlags(), spaceCmd.Flags()},
		},
		{
			name: "Prob",
			usage: `
              Prob is the probability of the local ensemble interval used to
              detect inhomogeneities.`,
			defaultVal: 0.95,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.PersistentFlags()},
		},
		{
			name: "Method",
			usage: `
              Method is the correction method: mean, median, skewness or
              percentile.`,
			defaultVal: "mean",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.PersistentFlags()},
		},
		{
			name: "SkewThreshold",
			usage: `
              SkewThreshold is the absolute skewness above which the
              skewness method corrects with the median.`,
			defaultVal: 1.5,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.PersistentFlags()},
		},
		{
			name: "PercentileProb",
			usage: `
              PercentileProb is the interval probability used by the
              percentile method. Zero means Prob.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.PersistentFlags()},
		},
		{
			name: "Radius",
			usage: `
              Radius is the horizontal radius, in the units of the station
              coordinates, of the region the local statistics are computed
              over. Nodes whose centres lie within Radius of the candidate
              station are used. Zero uses the grid node nearest to the
              candidate station.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.PersistentFlags()},
		},
		{
			name: "SaveIntermediates",
			usage: `
              SaveIntermediates saves the candidate, references, result and
              simulation parameters of every iteration.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.PersistentFlags()},
		},
		{
			name: "SaveEnsemble",
			usage: `
              SaveEnsemble saves the local ensemble values of every
              iteration.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.PersistentFlags()},
		},
		{
			name: "Purge",
			usage: `
              Purge deletes the simulated grids after every iteration.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.PersistentFlags(), spaceCmd.Flags()},
		},
		{
			name: "Order.Kind",
			usage: `
              Order.Kind is how candidate stations are ordered: random,
              sorted, variance, network-deviation or user.`,
			defaultVal: "random",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.PersistentFlags(), orderCmd.Flags()},
		},
		{
			name: "Order.Ascending",
			usage: `
              Order.Ascending sorts stations in ascending order of id or
              statistic.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.PersistentFlags(), orderCmd.Flags()},
		},
		{
			name: "Order.MissingLast",
			usage: `
              Order.MissingLast puts stations without enough values for the
              ordering statistic last rather than first.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.PersistentFlags(), orderCmd.Flags()},
		},
		{
			name: "Order.Seed",
			usage: `
              Order.Seed is the random seed of the random ordering. A
              negative seed uses the current time.`,
			defaultVal: -1,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.PersistentFlags(), orderCmd.Flags()},
		},
		{
			name: "Order.User",
			usage: `
              Order.User is the list of station ids for the user ordering.`,
			defaultVal: []int{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), batchCmd.PersistentFlags(), orderCmd.Flags()},
		},
		{
			name: "Decades.DataDir",
			usage: `
              Decades.DataDir is the directory holding one dec* directory per
              decade, each with a point-set whose name contains the first
              year of the decade.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{decadesCmd.Flags()},
		},
		{
			name: "Decades.VariogramFile",
			usage: `
              Decades.VariogramFile is the CSV file listing the variogram of
              each decade.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{decadesCmd.Flags()},
		},
		{
			name: "Decades.Spreadsheet",
			usage: `
              Decades.Spreadsheet is the xlsx file the merged results are
              written to. The default is decades.xlsx in the output
              directory.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{decadesCmd.Flags()},
		},
		{
			name: "Networks.Dirs",
			usage: `
              Networks.Dirs are the network directories. Each holds a
              *grid*.csv file and either one point-set or, when run by
              decade, dec* directories and a *variog*.csv file.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{networksCmd.Flags()},
		},
		{
			name: "Networks.ByDecade",
			usage: `
              Networks.ByDecade runs every network as a decades batch.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{networksCmd.Flags()},
		},
		{
			name: "Space.Decades",
			usage: `
              Space.Decades is the number of decades of the batch.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{spaceCmd.Flags()},
		},
		{
			name: "Space.Stations",
			usage: `
              Space.Stations is the number of candidate stations.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{spaceCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("HOMOG")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // The flag is only created once.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
			case bool:
				set.Bool(option.name, option.defaultVal.(bool), option.usage)
			case int:
				set.Int(option.name, option.defaultVal.(int), option.usage)
			case []int:
				set.IntSlice(option.name, option.defaultVal.([]int), option.usage)
			case float64:
				set.Float64(option.name, option.defaultVal.(float64), option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(batchCmd)
	batchCmd.AddCommand(decadesCmd)
	batchCmd.AddCommand(networksCmd)
	Root.AddCommand(spaceCmd)
	Root.AddCommand(orderCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("homog: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "homog",
	Short: "Homogenise climate station series by geostatistical simulation.",
	Long: `homog detects and corrects inhomogeneities in the time series of a network
of climate stations. Each candidate station is compared with the local
distribution of an ensemble of simulations conditioned on its neighbours;
observations outside the ensemble interval are replaced and missing values
are filled in.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'HOMOG_var' where 'var' is the
name of the variable to be set, with dots replaced by underscores.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of homog.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("homog v%s\n", homog.Version)
	},
	DisableAutoGenTag: true,
}

// runCmd homogenises one point-set.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Homogenise a station network.",
	Long: `run homogenises the station network in the Data file, one candidate
station at a time, and writes the homogenised network and a table of the
station series to the output directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bc, err := batchConfig(Cfg)
		if err != nil {
			return err
		}
		data := os.ExpandEnv(Cfg.GetString("Data"))
		if data == "" {
			return fmt.Errorf("homog: the Data option is not set: %w", homog.ErrMissingParameter)
		}
		return Run(cmd, bc, data, checkLogFile(Cfg.GetString("LogFile"), bc.OutDir),
			os.ExpandEnv(Cfg.GetString("MetricsFile")))
	},
	DisableAutoGenTag: true,
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Homogenise several decades or networks.",
	Long: `batch homogenises several data sets with shared settings. Use the
subcommands specified below to choose a batch mode.`,
	DisableAutoGenTag: true,
}

var decadesCmd = &cobra.Command{
	Use:   "decades",
	Short: "Homogenise a network decade by decade.",
	Long: `decades homogenises the data of every decade listed in the variogram
file with the variogram of that decade, and merges the results of all
decades into one spreadsheet.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bc, err := batchConfig(Cfg)
		if err != nil {
			return err
		}
		dataDir := os.ExpandEnv(Cfg.GetString("Decades.DataDir"))
		vfile := os.ExpandEnv(Cfg.GetString("Decades.VariogramFile"))
		if dataDir == "" || vfile == "" {
			return fmt.Errorf("homog: Decades.DataDir and Decades.VariogramFile must be set: %w",
				homog.ErrMissingParameter)
		}
		sheet := os.ExpandEnv(Cfg.GetString("Decades.Spreadsheet"))
		if sheet == "" {
			sheet = filepath.Join(bc.OutDir, "decades.xlsx")
		}
		return Decades(cmd, bc, dataDir, vfile, sheet, checkLogFile(Cfg.GetString("LogFile"), bc.OutDir),
			os.ExpandEnv(Cfg.GetString("MetricsFile")))
	},
	DisableAutoGenTag: true,
}

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "Homogenise several station networks.",
	Long: `networks homogenises each of the network directories in turn, using the
grid geometry given in each directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bc, err := batchConfig(Cfg)
		if err != nil {
			return err
		}
		dirs, err := cast.ToStringSliceE(Cfg.Get("Networks.Dirs"))
		if err != nil {
			return fmt.Errorf("homog: reading Networks.Dirs: %v: %w", err, homog.ErrConfig)
		}
		dirs = append(expandStringSlice(dirs), args...)
		if len(dirs) == 0 {
			return fmt.Errorf("homog: no network directories given: %w", homog.ErrMissingParameter)
		}
		return Networks(cmd, bc, dirs, Cfg.GetBool("Networks.ByDecade"),
			checkLogFile(Cfg.GetString("LogFile"), bc.OutDir), os.ExpandEnv(Cfg.GetString("MetricsFile")))
	},
	DisableAutoGenTag: true,
}

var spaceCmd = &cobra.Command{
	Use:   "space",
	Short: "Estimate the disk space needed for simulated grids.",
	Long: `space prints an estimate of the disk space taken by the simulated grids
of a batch with the grid and number of simulations of the template.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tmpl, err := loadTemplate(os.ExpandEnv(Cfg.GetString("Simulator.Template")))
		if err != nil {
			return err
		}
		return Space(cmd, tmpl, Cfg.GetInt("Space.Decades"), Cfg.GetInt("Space.Stations"), Cfg.GetBool("Purge"))
	},
	DisableAutoGenTag: true,
}

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Print the order candidate stations are homogenised in.",
	Long: `order prints the station ids of the Data file in the order they would be
homogenised with the current ordering options.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := checkOrdering(Cfg)
		if err != nil {
			return err
		}
		data := os.ExpandEnv(Cfg.GetString("Data"))
		if data == "" {
			return fmt.Errorf("homog: the Data option is not set: %w", homog.ErrMissingParameter)
		}
		return PrintOrder(cmd, data, Cfg.GetFloat64("ND"), Cfg.GetBool("Header"), o)
	},
	DisableAutoGenTag: true,
}
