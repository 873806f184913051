package main

import "time"

// Window, page and audio constants for the test station shell. Everything a
// station operator may need to tune lives in internal/config instead.
const (
	windowTitle         = "Contrast Sensitivity Test"
	defaultTPS          = 60
	fixationArm         = 12
	fixationThickness   = 2
	apertureRingWidth   = 2
	apertureContrast    = 10
	rasterTimeout       = 500 * time.Millisecond
	pageLineHeight      = 16
	pageMargin          = 24
	audioSampleRate     = 48000
	audioFadeDuration   = 5 * time.Millisecond
	pcm16MaxValue       = 32767
	pcm16MinValue       = -32768
	audioChannels       = 2
	audioBytesPerSample = 2
	audioFrameBytes     = audioChannels * audioBytesPerSample
)
