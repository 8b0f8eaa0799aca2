package config

const (
	defaultWorkDir            = "~/.local/share/subforge"
	defaultDownloadDir        = "~/.local/share/subforge/downloads"
	defaultProcessingDir      = "~/.local/share/subforge/processing"
	defaultOutputDir          = "~/.local/share/subforge/output"
	defaultFontDir            = "~/.local/share/subforge/fonts"
	defaultLogDir             = "~/.local/share/subforge/logs"
	defaultAPIBind            = "127.0.0.1:8490"
	defaultVideoCodec         = "libx264"
	defaultCRF                = 23
	defaultPreset             = "medium"
	defaultMaxMuxingQueueSize = 1024
	defaultSubtitleCodec      = "mov_text"
	defaultSubtitleLanguage   = "eng"
	defaultShippedFont        = "bindumathi.ttf"
	defaultFontSize           = 20
	defaultPrimaryColor       = "&H00FFFFFF"
	defaultOutlineColor       = "&H00000000"
	defaultAlignment          = 2
	defaultMargin             = 10
	defaultMarginVert         = 20
	defaultAudioCodec         = "aac"
	defaultAudioRate          = "128k"
	defaultCancelGracePeriod  = 5
	defaultDownloadTimeout    = 1800
	defaultMinFreeSpaceGiB    = 2
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

func defaultResolutions() []string {
	return []string{"360p", "480p", "720p", "1080p"}
}

func defaultFontCandidates() []string {
	return []string{"Bindumathi", "Noto Sans Sinhala", "Iskoola Pota"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:       defaultWorkDir,
			DownloadDir:   defaultDownloadDir,
			ProcessingDir: defaultProcessingDir,
			OutputDir:     defaultOutputDir,
			FontDir:       defaultFontDir,
			LogDir:        defaultLogDir,
			APIBind:       defaultAPIBind,
		},
		FFmpeg: FFmpeg{
			VideoCodec:         defaultVideoCodec,
			CRF:                defaultCRF,
			Preset:             defaultPreset,
			MaxMuxingQueueSize: defaultMaxMuxingQueueSize,
		},
		Subtitles: Subtitles{
			SoftDefault:    true,
			Codec:          defaultSubtitleCodec,
			Language:       defaultSubtitleLanguage,
			ShippedFont:    defaultShippedFont,
			FontCandidates: defaultFontCandidates(),
			Style: SubtitleStyle{
				FontSize:     defaultFontSize,
				PrimaryColor: defaultPrimaryColor,
				OutlineColor: defaultOutlineColor,
				Bold:         false,
				Alignment:    defaultAlignment,
				MarginLeft:   defaultMargin,
				MarginRight:  defaultMargin,
				MarginVert:   defaultMarginVert,
			},
		},
		Encoding: Encoding{
			Resolutions: defaultResolutions(),
			AudioCodec:  defaultAudioCodec,
			AudioRate:   defaultAudioRate,
		},
		Workflow: Workflow{
			CancelGracePeriod: defaultCancelGracePeriod,
			DownloadTimeout:   defaultDownloadTimeout,
			MinFreeSpaceGiB:   defaultMinFreeSpaceGiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
