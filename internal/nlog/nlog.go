// SPDX-License-Identifier: MIT

// Package nlog wires the engine's logging onto dlib/dlog the same way
// cmd/btrfs-rec does: a logrus.Logger instance, leveled by a
// pflag-settable verbosity, installed on a context via
// dlog.WrapLogrus so every call site logs through dlog.Logger without
// caring which backend is behind it.
package nlog

import (
	"context"

	"github.com/datawire/dlib/dlog"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// LevelFlag adapts logrus.Level to pflag.Value so a CLI can expose
// --verbosity the way cmd/btrfs-rec's logLevelFlag does.
type LevelFlag struct {
	Level logrus.Level
}

var _ pflag.Value = (*LevelFlag)(nil)

func (f *LevelFlag) Type() string { return "loglevel" }

func (f *LevelFlag) Set(str string) error {
	lvl, err := logrus.ParseLevel(str)
	if err != nil {
		return err
	}
	f.Level = lvl
	return nil
}

func (f *LevelFlag) String() string { return f.Level.String() }

// WithLogger installs a logrus-backed dlog.Logger at lvl onto ctx.
func WithLogger(ctx context.Context, lvl logrus.Level) context.Context {
	logger := logrus.New()
	logger.SetLevel(lvl)
	return dlog.WithLogger(ctx, dlog.WrapLogrus(logger))
}
