package ffmpeg

// Preset bundles combine common option combinations.

// PresetClipHQ returns options for high-quality clip encoding. The slow
// preset with CRF 18 keeps re-encoded cuts visually lossless on the
// kind of screen-recorded and downloaded source material we ingest.
func PresetClipHQ() []Option {
	return []Option{
		VideoCodec("libx264"),
		CRF(18),
		Preset("slow"),
		PixelFormat("yuv420p"),
	}
}

// PresetAAC192 returns options for AAC audio at 192 kbit/s.
func PresetAAC192() []Option {
	return []Option{
		AudioCodec("aac"),
		AudioBitrate("192k"),
	}
}

// PresetBurn returns options for subtitle burn-in. veryfast/CRF 23 is
// plenty since the subtitles filter forces a full re-encode anyway, and
// the audio stream passes through untouched.
func PresetBurn() []Option {
	return []Option{
		VideoCodec("libx264"),
		CRF(23),
		Preset("veryfast"),
		PixelFormat("yuv420p"),
		CopyAudio,
	}
}

// PresetRemux returns options for remuxing (stream copy).
func PresetRemux() []Option {
	return []Option{
		CopyAll,
		MapAll,
	}
}

// Flatten merges multiple option slices into one.
func Flatten(groups ...[]Option) []Option {
	var all []Option
	for _, g := range groups {
		all = append(all, g...)
	}
	return all
}
