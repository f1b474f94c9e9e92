/*
 * SPDX-FileCopyrightText: © Hypermode Inc. <hello@hypermode.com>
 * SPDX-License-Identifier: Apache-2.0
 */

package x

import (
	"runtime"

	"github.com/pkg/errors"
	"github.com/pkg/profile"
	"github.com/spf13/viper"
)

type stopper interface {
	Stop()
}

// StartProfile starts the profiler selected by the profile_mode option.
// The returned stopper must be stopped before the process exits so that the
// profile gets flushed to disk.
func StartProfile(conf *viper.Viper) (stopper, error) {
	profileMode := conf.GetString("profile_mode")
	switch profileMode {
	case "cpu":
		return profile.Start(profile.CPUProfile), nil
	case "mem":
		return profile.Start(profile.MemProfile), nil
	case "mutex":
		return profile.Start(profile.MutexProfile), nil
	case "block":
		blockRate := conf.GetInt("block_rate")
		runtime.SetBlockProfileRate(blockRate)
		return profile.Start(profile.BlockProfile), nil
	case "":
		// do nothing
		return noOpStopper{}, nil
	default:
		return noOpStopper{}, errors.Errorf("invalid profile mode: %q", profileMode)
	}
}

type noOpStopper struct{}

func (noOpStopper) Stop() {}
