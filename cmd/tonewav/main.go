package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/liuscraft/frequency/internal/audio"
)

func main() {
	output := flag.String("output", "tone.wav", "输出文件")
	freq := flag.Float64("freq", 440, "频率（Hz）")
	durationMs := flag.Int("duration", 1000, "时长（毫秒）")
	sampleRate := flag.Int("rate", audio.StaticSampleRate, "采样率（Hz）")
	channels := flag.Int("channels", 1, "声道数 1 或 2")
	outputRate := flag.Int("output-rate", 0, "重采样后的采样率，0 表示不重采样")
	raw := flag.Bool("raw", false, "输出裸 16 位小端 PCM 而不是 WAV")
	flag.Parse()

	req := audio.Request{
		FrequencyHz:  *freq,
		DurationMs:   *durationMs,
		SampleRateHz: *sampleRate,
		Channels:     *channels,
	}
	samples, err := audio.Synthesize(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Synthesize failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("生成 %.1f Hz 正弦音：%d 帧 @ %d Hz x%d\n", req.FrequencyHz, len(samples)/req.Channels, req.SampleRateHz, req.Channels)

	rate := req.SampleRateHz
	if *outputRate > 0 && *outputRate != rate {
		reader := audio.NewResamplingReader(bytes.NewReader(audio.EncodeLittleEndian16(samples)),
			rate, *outputRate, req.Channels, audio.NewLinearResampler())
		data, err := io.ReadAll(reader)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Resampling failed: %v\n", err)
			os.Exit(1)
		}
		if samples, err = audio.DecodeLittleEndian16(data); err != nil {
			fmt.Fprintf(os.Stderr, "Resampling failed: %v\n", err)
			os.Exit(1)
		}
		rate = *outputRate
		fmt.Printf("重采样到 %d Hz：%d 帧\n", rate, len(samples)/req.Channels)
	}

	file, err := os.Create(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Create %s failed: %v\n", *output, err)
		os.Exit(1)
	}
	defer file.Close()

	if *raw {
		_, err = file.Write(audio.EncodeLittleEndian16(samples))
	} else {
		err = audio.WriteWAV(file, samples, rate, req.Channels)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Write %s failed: %v\n", *output, err)
		os.Exit(1)
	}
	fmt.Printf("已写入 %s\n", *output)
}
