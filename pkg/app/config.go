package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lk2023060901/flotilla/pkg/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，FLOTILLA_STORE_DRIVER 对应 store.driver
const EnvPrefix = "FLOTILLA"

var (
	configPath string
	logPath    string
)

// LoadConfig 从命令行、环境变量和配置文件加载配置到 target
// 优先级：命令行显式参数 > 环境变量 > 配置文件 > 默认值
func LoadConfig(target any, opts ...config.Option) error {
	return loadConfig(pflag.CommandLine, os.Args[1:], target, opts...)
}

func loadConfig(fs *pflag.FlagSet, args []string, target any, opts ...config.Option) error {
	execDir, err := GetExecDir()
	if err != nil {
		return fmt.Errorf("failed to get executable directory: %w", err)
	}

	defaultConfig := filepath.Join(execDir, "config.yaml")
	defaultLog := filepath.Join(execDir, "logs", "flotilla.log")

	if fs.Lookup("config") == nil {
		fs.StringVarP(&configPath, "config", "c", defaultConfig, "path to config file")
	}
	if fs.Lookup("log.path") == nil {
		fs.StringVar(&logPath, "log.path", defaultLog, "output path for logs")
	}
	if !fs.Parsed() {
		if err := fs.Parse(args); err != nil {
			return err
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// 显式指定（flag 或环境变量）的配置文件必须存在，默认路径缺失时只用环境变量和默认值
	explicit := fs.Changed("config")
	finalConfigPath := configPath
	if !explicit {
		if envConfig := os.Getenv(EnvPrefix + "_CONFIG"); envConfig != "" {
			finalConfigPath = envConfig
			explicit = true
		}
	}

	haveFile := true
	if _, err := os.Stat(finalConfigPath); os.IsNotExist(err) {
		if explicit {
			return fmt.Errorf("config file not found at %s", finalConfigPath)
		}
		haveFile = false
	}
	configPath = finalConfigPath

	v.SetDefault("log.output_path", defaultLog)
	if fs.Changed("log.path") {
		v.Set("log.output_path", logPath)
		v.Set("log.enable_file", true)
	}

	mgr := config.NewManager(append(opts, config.WithViper(v))...)
	if haveFile {
		if err := mgr.LoadFile(configPath); err != nil {
			return err
		}
	}

	if err := mgr.Unmarshal(target); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	logPath = v.GetString("log.output_path")
	if v.GetBool("log.enable_file") {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	return nil
}

// GetExecDir 获取可执行文件所在目录（处理符号链接）
func GetExecDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	realPath, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		return filepath.Dir(execPath), nil
	}
	return filepath.Dir(realPath), nil
}

// GetConfigPath 返回最终使用的配置文件路径
func GetConfigPath() string {
	return configPath
}

func GetLogPath() string {
	return logPath
}
