package main

import (
	"transcribe/internal/cli"
	"transcribe/internal/engine/command"
	"transcribe/internal/engine/openai"
	"transcribe/internal/engine/vosk"
	"transcribe/internal/engine/whisper"
	"transcribe/internal/speech"
)

func engines() cli.Engines {
	return cli.Engines{
		whisper.Name: func(o cli.Options) (speech.Engine, error) {
			e, err := whisper.New(whisper.Config{
				ModelPath:     o.ModelPath,
				Threads:       o.Threads,
				BeamSize:      o.BeamSize,
				InitialPrompt: o.Prompt,
			})
			if err != nil {
				return nil, err
			}
			return e, nil
		},
		openai.Name: func(o cli.Options) (speech.Engine, error) {
			e, err := openai.New(openai.Config{
				APIKey:    o.OpenAIKey,
				Model:     o.OpenAIModel,
				BaseURL:   o.OpenAIBaseURL,
				ProxyAddr: o.ProxyAddr,
			})
			if err != nil {
				return nil, err
			}
			return e, nil
		},
		vosk.Name: func(o cli.Options) (speech.Engine, error) {
			e, err := vosk.New(vosk.Config{URL: o.VoskURL})
			if err != nil {
				return nil, err
			}
			return e, nil
		},
		command.Name: func(o cli.Options) (speech.Engine, error) {
			e, err := command.New(command.Config{Bin: o.Bin, Model: o.ModelPath})
			if err != nil {
				return nil, err
			}
			return e, nil
		},
	}
}
