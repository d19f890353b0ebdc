//go:build nogocv

package main

import (
	"errors"

	"github.com/bft-labs/livestream/pkg/livestream"
	pkglog "github.com/bft-labs/livestream/pkg/log"
)

func newCamera(int, pkglog.Logger) (livestream.FrameSource, error) {
	return nil, errors.New("built with -tags nogocv: use --source command or --source testsrc")
}
