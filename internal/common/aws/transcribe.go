package aws

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"

	"reasoncare-orchestrator/internal/common/errors"
	"reasoncare-orchestrator/internal/common/logger"
	"reasoncare-orchestrator/internal/models"
)

// TranscribeAPI is the subset of the Transcribe client in use.
type TranscribeAPI interface {
	StartTranscriptionJob(ctx context.Context, params *transcribe.StartTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, params *transcribe.GetTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error)
}

type TranscribeClient struct {
	api    TranscribeAPI
	logger logger.Logger
}

func NewTranscribeClient(ctx context.Context, region string, log logger.Logger) (*TranscribeClient, error) {
	awsCfg, err := LoadConfig(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewTranscribeClientWithAPI(transcribe.NewFromConfig(awsCfg), log), nil
}

func NewTranscribeClientWithAPI(api TranscribeAPI, log logger.Logger) *TranscribeClient {
	return &TranscribeClient{api: api, logger: logger.ForComponent(log, "transcribe")}
}

var mediaFormats = map[string]types.MediaFormat{
	"mp3":  types.MediaFormatMp3,
	"mp4":  types.MediaFormatMp4,
	"wav":  types.MediaFormatWav,
	"flac": types.MediaFormatFlac,
	"ogg":  types.MediaFormatOgg,
	"amr":  types.MediaFormatAmr,
	"webm": types.MediaFormatWebm,
}

// MediaFormatFor picks the format from explicit, else the locator's extension, else wav.
func MediaFormatFor(audioLocator, explicit string) types.MediaFormat {
	if f, ok := mediaFormats[strings.ToLower(explicit)]; ok {
		return f
	}
	p := audioLocator
	if u, err := url.Parse(audioLocator); err == nil && u.Path != "" {
		p = u.Path
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
	if f, ok := mediaFormats[ext]; ok {
		return f
	}
	return types.MediaFormatWav
}

// Submit starts an asynchronous transcription job.
func (c *TranscribeClient) Submit(ctx context.Context, jobName, audioLocator string, settings models.LanguageSettings) (models.JobHandle, error) {
	input := &transcribe.StartTranscriptionJobInput{
		TranscriptionJobName: awsv2.String(jobName),
		LanguageCode:         types.LanguageCode(settings.LanguageCode),
		MediaFormat:          MediaFormatFor(audioLocator, settings.MediaFormat),
		Media:                &types.Media{MediaFileUri: awsv2.String(audioLocator)},
	}
	if settings.VocabularyName != "" || settings.ShowSpeakerLabels {
		s := &types.Settings{}
		if settings.VocabularyName != "" {
			s.VocabularyName = awsv2.String(settings.VocabularyName)
		}
		if settings.ShowSpeakerLabels {
			s.ShowSpeakerLabels = awsv2.Bool(true)
			s.MaxSpeakerLabels = awsv2.Int32(int32(settings.MaxSpeakerLabels))
		}
		input.Settings = s
	}

	out, err := c.api.StartTranscriptionJob(ctx, input)
	if err != nil {
		return models.JobHandle{}, errors.NewTranscriptionSubmitError(jobName, err)
	}

	handle := models.JobHandle{JobName: jobName, Status: string(types.TranscriptionJobStatusQueued)}
	if out != nil && out.TranscriptionJob != nil {
		if name := awsv2.ToString(out.TranscriptionJob.TranscriptionJobName); name != "" {
			handle.JobName = name
		}
		if out.TranscriptionJob.TranscriptionJobStatus != "" {
			handle.Status = string(out.TranscriptionJob.TranscriptionJobStatus)
		}
	}

	c.logger.Info("transcription job started", map[string]interface{}{
		"jobName":     handle.JobName,
		"status":      handle.Status,
		"mediaFormat": string(input.MediaFormat),
	})
	return handle, nil
}

// Status reports the state of a job started by Submit.
func (c *TranscribeClient) Status(ctx context.Context, jobName string) (models.TranscriptionStatus, error) {
	out, err := c.api.GetTranscriptionJob(ctx, &transcribe.GetTranscriptionJobInput{
		TranscriptionJobName: awsv2.String(jobName),
	})
	if err != nil {
		if isJobNotFound(err) {
			return models.TranscriptionStatus{}, errors.NewTranscriptionNotFoundError(jobName)
		}
		return models.TranscriptionStatus{}, errors.NewExternalCallError("transcribe", err)
	}
	if out == nil || out.TranscriptionJob == nil {
		return models.TranscriptionStatus{}, errors.NewTranscriptionNotFoundError(jobName)
	}

	job := out.TranscriptionJob
	status := models.TranscriptionStatus{
		JobName:       jobName,
		Status:        string(job.TranscriptionJobStatus),
		FailureReason: awsv2.ToString(job.FailureReason),
	}
	if job.Transcript != nil {
		status.TranscriptURI = awsv2.ToString(job.Transcript.TranscriptFileUri)
	}
	return status, nil
}

func isJobNotFound(err error) bool {
	var nf *types.NotFoundException
	if stderrors.As(err, &nf) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "couldn't be found")
}
