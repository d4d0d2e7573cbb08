package models

// LanguageSettings configures a transcription job.
type LanguageSettings struct {
	LanguageCode      string `json:"language_code" mapstructure:"language_code"`
	MediaFormat       string `json:"media_format,omitempty" mapstructure:"media_format"`
	VocabularyName    string `json:"vocabulary_name,omitempty" mapstructure:"vocabulary_name"`
	ShowSpeakerLabels bool   `json:"show_speaker_labels" mapstructure:"show_speaker_labels"`
	MaxSpeakerLabels  int    `json:"max_speaker_labels,omitempty" mapstructure:"max_speaker_labels"`
}

func DefaultLanguageSettings() LanguageSettings {
	return LanguageSettings{
		LanguageCode:      "en-US",
		VocabularyName:    "medical-vocabulary",
		ShowSpeakerLabels: true,
		MaxSpeakerLabels:  2,
	}
}

// JobHandle identifies a submitted transcription job.
type JobHandle struct {
	JobName string `json:"job_name"`
	Status  string `json:"status"`
}
