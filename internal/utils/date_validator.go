package utils

import (
	"strconv"
	"strings"
	"time"
)

type DateFormat string

const (
	FormatISO8601      DateFormat = "2006-01-02T15:04:05Z07:00"
	FormatISO8601Nano  DateFormat = time.RFC3339Nano
	FormatISO8601Local DateFormat = "2006-01-02T15:04:05"
	FormatISO8601Date  DateFormat = "2006-01-02"
	FormatSQLDateTime  DateFormat = "2006-01-02 15:04:05"
	FormatSlashDate    DateFormat = "2006/01/02"
	FormatDotDate      DateFormat = "2006.01.02"
	FormatUnixMilli    DateFormat = "unixms"
)

// Millisecond timestamps between 2001 and 2100. Integers outside this range,
// including second-resolution timestamps, are rejected.
const (
	minUnixMilli = int64(1_000_000_000_000)
	maxUnixMilli = int64(4_102_444_800_000)
)

type DateValidator struct {
	supportedFormats []DateFormat
	standardFormat   DateFormat
}

type ValidationResult struct {
	IsValid        bool
	DetectedFormat DateFormat
	ParsedTime     time.Time
	StandardFormat string
	OriginalValue  string
}

// NewDateValidator accepts the timestamp shapes field devices and the
// dashboard send. Zone-less values are read as UTC.
func NewDateValidator() *DateValidator {
	return &DateValidator{
		supportedFormats: []DateFormat{
			FormatISO8601Nano,
			FormatISO8601,
			FormatISO8601Local,
			FormatSQLDateTime,
			FormatISO8601Date,
			FormatSlashDate,
			FormatDotDate,
		},
		standardFormat: FormatISO8601,
	}
}

func (dv *DateValidator) ValidateAndConvert(input string) ValidationResult {
	result := ValidationResult{
		IsValid:       false,
		OriginalValue: input,
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return result
	}

	if ms, err := strconv.ParseInt(input, 10, 64); err == nil {
		if ms >= minUnixMilli && ms < maxUnixMilli {
			parsedTime := time.UnixMilli(ms).UTC()
			result.IsValid = true
			result.DetectedFormat = FormatUnixMilli
			result.ParsedTime = parsedTime
			result.StandardFormat = parsedTime.Format(string(dv.standardFormat))
		}
		return result
	}

	for _, format := range dv.supportedFormats {
		parsedTime, err := time.Parse(string(format), input)
		if err != nil {
			continue
		}
		parsedTime = parsedTime.UTC()
		result.IsValid = true
		result.DetectedFormat = format
		result.ParsedTime = parsedTime
		result.StandardFormat = parsedTime.Format(string(dv.standardFormat))
		return result
	}

	return result
}

var defaultDateValidator = NewDateValidator()

// ParseTimestamp parses an instant in any supported format and returns it in
// UTC.
func ParseTimestamp(input string) (time.Time, bool) {
	result := defaultDateValidator.ValidateAndConvert(input)
	if !result.IsValid {
		return time.Time{}, false
	}
	return result.ParsedTime, true
}

// ParseOptionalTimestamp treats nil, empty and unparseable values alike.
func ParseOptionalTimestamp(input *string) *time.Time {
	if input == nil {
		return nil
	}
	parsed, ok := ParseTimestamp(*input)
	if !ok {
		return nil
	}
	return &parsed
}

// NormalizeBirthDate reduces any supported date or timestamp to YYYY-MM-DD.
// Empty input yields nil.
func NormalizeBirthDate(input *string) (*string, bool) {
	if input == nil || strings.TrimSpace(*input) == "" {
		return nil, true
	}
	parsed, ok := ParseTimestamp(*input)
	if !ok {
		return nil, false
	}
	date := parsed.Format(string(FormatISO8601Date))
	return &date, true
}

// EndOfDay extends a date-only bound so the whole day is included.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
