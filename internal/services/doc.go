// Package services holds the error markers and context helpers shared by the
// recorder, the clip pipeline and the ffmpeg integrations.
//
// Wrap attaches a marker such as ErrTranscodeFailure to an error along with
// the component and operation that produced it; callers classify with
// errors.Is. WithSessionID and WithRequestID carry ids that logging.WithContext
// turns into log attributes.
package services
