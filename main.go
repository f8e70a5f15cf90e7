// Package main provides the entry point for the tts-local CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/Neperienx/TTS-local/internal/cache"
	"github.com/Neperienx/TTS-local/internal/engine"
	"github.com/Neperienx/TTS-local/utils"
)

const appName = "tts-local"

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	debug      bool

	// Settings resolved from flags, environment, and the config file.
	engineName   string
	languageTag  string
	modelName    string
	deviceName   string
	voicesDir    string
	styleName    string
	jobs         int
	cacheEnabled bool
	cacheDir     string
	cacheMaxMB   int

	rootCmd = &cobra.Command{
		Use:   appName,
		Short: "Narrate text and picture books with neural voices, locally",
		Long: paragraph(
			fmt.Sprintf("\nTurn text and story scripts into narrated audio and video, %s.", keyword("entirely on your own machine")),
		),
		SilenceErrors: false,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
	}
)

// validateStyle checks if the style is a default style, if not, checks that
// the custom style exists.
func validateStyle(style string) error {
	if style != "auto" && styles.DefaultStyles[style] == nil {
		style = utils.ExpandPath(style)
		if _, err := os.Stat(style); errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("specified style does not exist: %s", style)
		} else if err != nil {
			return fmt.Errorf("unable to stat file: %w", err)
		}
	}
	return nil
}

func validateOptions(cmd *cobra.Command) error {
	if debug {
		log.SetLevel(log.DebugLevel)
		if os.Getenv("TTS_LOCAL_LOGFILE") == "" {
			log.SetOutput(os.Stderr)
		}
	}

	// An explicit --config replaces whatever init() found.
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read configuration: %w", err)
		}
	}

	// grab config values from Viper
	engineName = viper.GetString("engine")
	languageTag = engine.NormalizeLanguage(viper.GetString("language"))
	modelName = viper.GetString("model-name")
	deviceName = viper.GetString("device")
	voicesDir = utils.ExpandPath(viper.GetString("voices-dir"))
	jobs = viper.GetInt("jobs")
	cacheEnabled = viper.GetBool("cache.enabled")
	cacheDir = utils.ExpandPath(viper.GetString("cache.dir"))
	cacheMaxMB = viper.GetInt("cache.max-size-mb")

	if _, ok := engine.CanonicalName(engineName); !ok {
		return fmt.Errorf("unknown engine %q (available: %s)",
			engineName, strings.Join(engine.Names(), ", "))
	}

	switch deviceName {
	case engine.DeviceAuto, engine.DeviceCPU, engine.DeviceCUDA:
	default:
		return fmt.Errorf("invalid device %q: use auto, cpu, or cuda", deviceName)
	}

	if jobs < 1 || jobs > 4 {
		return fmt.Errorf("jobs must be between 1 and 4, got %d", jobs)
	}

	if cacheMaxMB < 1 {
		return fmt.Errorf("cache.max-size-mb must be at least 1, got %d", cacheMaxMB)
	}

	// validate the glamour style
	styleName = viper.GetString("style")
	if err := validateStyle(styleName); err != nil {
		return err
	}

	// We want the no-color style when stdout is not a terminal and no
	// specific style was passed by arg.
	if !term.IsTerminal(int(os.Stdout.Fd())) && !cmd.Flags().Changed("style") {
		styleName = "notty"
	}

	return nil
}

// synthOptions are the voice selection knobs shared by the commands
// that run synthesis. Flags win over config and environment.
type synthOptions struct {
	engine     string
	model      string
	language   string
	speakerWAV string
	speakerID  string
	history    string
	device     string
	noCache    bool
}

// addSynthFlags registers the shared voice flags on a synthesis command.
// The flags stay unbound in viper: two commands carry the same names,
// so each resolves them against its own flag set in synthOptionsFrom.
func addSynthFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("engine", "e", "", "TTS engine: xtts or bark")
	cmd.Flags().String("model-name", "", "XTTS model identifier")
	cmd.Flags().StringP("language", "l", "", "language code for synthesis")
	cmd.Flags().String("speaker-wav", "", "reference WAV for voice cloning (xtts)")
	cmd.Flags().String("speaker-id", "", "built-in speaker name (xtts)")
	cmd.Flags().String("history-prompt", "", "speaker preset (bark)")
	cmd.Flags().String("device", "", "inference device: auto, cpu, or cuda")
	cmd.Flags().Bool("no-cache", false, "bypass the synthesis cache")
}

func synthOptionsFrom(cmd *cobra.Command) synthOptions {
	opts := synthOptions{
		engine:   engineName,
		model:    modelName,
		language: languageTag,
		device:   deviceName,
	}

	fl := cmd.Flags()
	if fl.Changed("engine") {
		opts.engine, _ = fl.GetString("engine")
	}
	if fl.Changed("model-name") {
		opts.model, _ = fl.GetString("model-name")
	}
	if fl.Changed("language") {
		lang, _ := fl.GetString("language")
		opts.language = engine.NormalizeLanguage(lang)
	}
	if fl.Changed("device") {
		opts.device, _ = fl.GetString("device")
	}
	opts.speakerWAV, _ = fl.GetString("speaker-wav")
	if opts.speakerWAV != "" {
		opts.speakerWAV = utils.ExpandPath(opts.speakerWAV)
	}
	opts.speakerID, _ = fl.GetString("speaker-id")
	opts.history, _ = fl.GetString("history-prompt")
	opts.noCache, _ = fl.GetBool("no-cache")

	return opts
}

// buildEngine constructs the requested engine, wrapped in the synthesis
// cache unless caching is off. The returned closer tears both down.
func buildEngine(opts synthOptions) (engine.Engine, func(), error) {
	overrides, err := engine.LoadOverrides()
	if err != nil {
		return nil, nil, err
	}
	if err := engine.Preflight(opts.engine, overrides); err != nil {
		return nil, nil, fmt.Errorf("%w\n\n%s", err, paragraph(engine.InstallGuidance(opts.engine)))
	}

	eng, err := engine.New(opts.engine, engine.Config{
		ModelName: opts.model,
		Device:    opts.device,
		Env:       overrides,
	})
	if err != nil {
		return nil, nil, err
	}

	var store *cache.Manager
	if cacheEnabled && !opts.noCache {
		store, err = newCacheManager()
		if err != nil {
			// A broken cache should not block synthesis.
			log.Warn("synthesis cache unavailable", "error", err)
		}
	}

	closer := func() {
		if store != nil {
			if err := store.Close(); err != nil {
				log.Debug("error closing cache", "error", err)
			}
		}
		_ = eng.Close()
	}
	return engine.WithCache(eng, store), closer, nil
}

// newCacheManager opens the disk-backed synthesis cache at the
// configured or default location.
func newCacheManager() (*cache.Manager, error) {
	dir := cacheDir
	if dir == "" {
		var err error
		dir, err = gap.NewScope(gap.User, appName).CacheDir()
		if err != nil {
			return nil, fmt.Errorf("locate cache directory: %w", err)
		}
	}

	cfg := cache.DefaultConfig()
	cfg.Dir = dir
	cfg.DiskBytes = int64(cacheMaxMB) << 20
	cfg.CleanupInterval = 0 // one-shot process, cleanup runs on Close
	return cache.New(cfg)
}

// defaultVoicesDir is where the voices command looks for cloning WAVs
// when voices-dir is not configured.
func defaultVoicesDir() string {
	dir, err := gap.NewScope(gap.User, appName).DataPath("voices")
	if err != nil {
		return "voices"
	}
	return dir
}

// guardOutput refuses to clobber an existing file unless --overwrite
// was given.
func guardOutput(path string, overwrite bool) error {
	if overwrite {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists (use --overwrite to replace it)", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("unable to stat output: %w", err)
	}
	return nil
}

// commandContext is cancelled on interrupt so engine subprocesses and
// ffmpeg get torn down before the process exits.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to stat stdin: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// terminalWidth is the wrap width for rendered markdown output.
func terminalWidth() int {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return 80
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	if w > 120 {
		return 120
	}
	return w
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	// A local .env can relocate the Python tooling per project.
	_ = godotenv.Load()

	tryLoadConfigFromDefaultPlaces()

	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging to stderr")

	viper.SetDefault("engine", engine.NameXTTS)
	viper.SetDefault("language", "en")
	viper.SetDefault("model-name", engine.DefaultXTTSModel)
	viper.SetDefault("device", engine.DeviceAuto)
	viper.SetDefault("voices-dir", "")
	viper.SetDefault("style", styles.AutoStyle)
	viper.SetDefault("jobs", 1)
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.dir", "")
	viper.SetDefault("cache.max-size-mb", 512)

	rootCmd.AddCommand(configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, appName)
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, appName)}, dirs...)
	}

	if c := os.Getenv("TTS_LOCAL_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName(appName)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("tts_local")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], appName+".yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
