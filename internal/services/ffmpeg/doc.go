// Package ffmpeg wraps the ffmpeg command line for subtitle embedding,
// burn-in re-encodes, and rendition scaling, with line-oriented progress
// reporting suitable for long encodes.
package ffmpeg
