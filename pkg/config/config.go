// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package config loads installer settings: built-in defaults, then a TOML
// file, then TWINSTALL_* variables from the environment or an env file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/sekaiacg/twrp-recovery/pkg/install"
	"github.com/sekaiacg/twrp-recovery/pkg/log"
	"github.com/sekaiacg/twrp-recovery/pkg/partition"
	"github.com/sekaiacg/twrp-recovery/pkg/props"
)

const (
	DefaultPath    = "/etc/twinstall.toml"
	DefaultEnvFile = "/tmp/.twinstall.env"
	EnvPrefix      = "TWINSTALL_"
)

type Partition struct {
	AndroidRoot string   `toml:"android_root"`
	Storage     string   `toml:"storage"`
	StoragePath string   `toml:"storage_path"`
	BlockDir    string   `toml:"block_dir"`
	SuperHelper []string `toml:"super_helper"`
}

type Log struct {
	Dir      string `toml:"dir"`
	Compress bool   `toml:"compress"`
	Screen   string `toml:"screen"` //display device for end-user lines, empty for none
}

type Config struct {
	Install   install.Options    `toml:"install"`
	Layout    install.Layout     `toml:"layout"`
	Partition Partition          `toml:"partition"`
	Volumes   []partition.Volume `toml:"volume"`
	PropFiles []string           `toml:"prop_files"`
	Log       Log                `toml:"log"`
	History   string             `toml:"history_dir"`
	Reflash   []string           `toml:"reflash_command"`
	// UIReload is touched to ask the UI to reload its theme.
	UIReload string            `toml:"ui_reload"`
	Messages map[string]string `toml:"messages"`
}

func Default() *Config {
	return &Config{
		Install: install.Options{UnmountSystem: true},
		Layout:  install.DefaultLayout(),
		Partition: Partition{
			Storage:     "/data",
			StoragePath: "/data/media/0",
			BlockDir:    "/dev/block/by-name",
		},
		Volumes: []partition.Volume{
			{Path: "/system_root", Device: "/dev/block/by-name/system", FsType: "ext4", Options: "ro"},
			{Path: "/vendor", Device: "/dev/block/by-name/vendor", FsType: "ext4", Options: "ro"},
			{Path: "/data", Device: "/dev/block/by-name/userdata", FsType: "f2fs", Options: "noatime,nosuid,nodev"},
		},
		PropFiles: props.DefaultFiles,
		Log:       Log{Dir: "/tmp/recovery_logs"},
		History:   "/cache/recovery",
		UIReload:  "/tmp/.twinstall.reload",
	}
}

// Load builds the config. A missing file or env file is not an error; a
// malformed one is.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Logf("config %s not found, using defaults", path)
	case err != nil:
		return nil, err
	default:
		if err := Parse(cfg, data, path); err != nil {
			return nil, err
		}
	}

	env := map[string]string{}
	if envFile != "" {
		env, err = godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("env file %s: %w", envFile, err)
		}
	}
	cfg.applyEnv(func(key, def string) string { return getEnv(env, key, def) })
	return cfg, nil
}

// Parse decodes TOML data over cfg. Keys cfg doesn't have are an error. A
// list given in the file replaces the default list.
func Parse(cfg *Config, data []byte, source string) error {
	vols, propFiles := cfg.Volumes, cfg.PropFiles
	cfg.Volumes, cfg.PropFiles = nil, nil
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	err := dec.Decode(cfg)
	if len(cfg.Volumes) == 0 {
		cfg.Volumes = vols
	}
	if len(cfg.PropFiles) == 0 {
		cfg.PropFiles = propFiles
	}
	if err != nil {
		return fmt.Errorf("config %s: %w", source, err)
	}
	return nil
}

// getEnv prefers the process environment, then the env file.
func getEnv(file map[string]string, key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if val := file[key]; val != "" {
		return val
	}
	return def
}

func (c *Config) applyEnv(get func(key, def string) string) {
	envBool(get, "VERIFY_SIGNATURES", &c.Install.VerifySignatures)
	envBool(get, "UNMOUNT_SYSTEM", &c.Install.UnmountSystem)
	envBool(get, "REFLASH_RECOVERY", &c.Install.ReflashRecovery)
	envBool(get, "OEM_BUILD", &c.Install.OEMBuild)
	envBool(get, "LOG_COMPRESS", &c.Log.Compress)
	c.Log.Dir = get(EnvPrefix+"LOG_DIR", c.Log.Dir)
	c.Log.Screen = get(EnvPrefix+"SCREEN", c.Log.Screen)
	c.History = get(EnvPrefix+"HISTORY_DIR", c.History)
	c.Layout.CertsZip = get(EnvPrefix+"CERTS_ZIP", c.Layout.CertsZip)
	c.Partition.Storage = get(EnvPrefix+"STORAGE", c.Partition.Storage)
	c.Partition.StoragePath = get(EnvPrefix+"STORAGE_PATH", c.Partition.StoragePath)
}

func envBool(get func(key, def string) string, name string, v *bool) {
	key := EnvPrefix + name
	s := get(key, "")
	if s == "" {
		return
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		log.Logf("ignoring %s=%q: %s", key, s, err)
		return
	}
	*v = b
}

// PartitionConfig is the partition.Manager config this describes.
func (c *Config) PartitionConfig() partition.Config {
	return partition.Config{
		AndroidRoot: c.Partition.AndroidRoot,
		Storage:     c.Partition.Storage,
		StoragePath: c.Partition.StoragePath,
		BlockDir:    c.Partition.BlockDir,
		SuperHelper: c.Partition.SuperHelper,
	}
}
