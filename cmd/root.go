package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/scopediff/internal/utils"
	"github.com/sw33tLie/scopediff/pkg/diff"
	"github.com/sw33tLie/scopediff/pkg/snapshot"
	"github.com/sw33tLie/scopediff/pkg/source"
)

var cfgFile string

const (
	LOGO = `	                              _ _  __  __ 
	 ___  ___ ___  _ __   ___  __| (_)/ _|/ _|
	/ __|/ __/ _ \| '_ \ / _ \/ _' | | |_| |_ 
	\__ \ (_| (_) | |_) |  __/ (_| | |  _|  _|
	|___/\___\___/| .__/ \___|\__,_|_|_| |_|  
	              |_|                         

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scopediff",
	Short: "Get notified when bug bounty scopes change.",
	Long: LOGO + `scopediff keeps a local copy of the public bounty-targets-data snapshots
(Bugcrowd, HackerOne, Federacy, HackenProof, Intigriti, YesWeHack, plus the flat
domains and wildcards lists) and notifies you about the changes that matter.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.scopediff.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("backend", "", "Snapshot store: file, sqlite or postgres (overrides store.backend)")

	viper.BindPFlag("store.backend", rootCmd.PersistentFlags().Lookup("backend"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// A .env file in the working directory may carry secrets such as the webhook URL.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Error reading .env file: %s\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".scopediff")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("scopediff")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	// Defaults are set before the config file is written so it starts populated.
	viper.SetDefault("store.backend", "file")
	viper.SetDefault("store.dir", "")
	viper.SetDefault("store.dbpath", "")
	viper.SetDefault("store.dsn", "")
	viper.SetDefault("source.baseurl", source.DefaultBaseURL)
	viper.SetDefault("source.retries", 3)
	viper.SetDefault("source.timeout", 60)
	viper.SetDefault("notify.webhook", "")
	viper.SetDefault("keys.platforms", snapshot.DefaultPlatforms)
	viper.SetDefault("keys.lists", snapshot.DefaultLists)
	viper.SetDefault("rules.fields", diff.DefaultFields)
	viper.SetDefault("rules.assetcategories", diff.DefaultAssetCategories)
	viper.SetDefault("rules.valuekeys", diff.DefaultValueKeys)
	viper.SetDefault("rules.identitykeys", diff.DefaultIdentityKeys)
	viper.SetDefault("rules.typekeys", diff.DefaultTypeKeys)
	viper.SetDefault("run.concurrency", 1)

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.scopediff.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s\n", err)
			}
		} else {
			fmt.Printf("Error reading config file: %s\n", err)
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}
