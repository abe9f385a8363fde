package scanner

import (
	"context"
	"slices"
	"strings"

	"github.com/LucerneSecurity/commitgate/pkg/gate"
	"github.com/rs/zerolog/log"
	"github.com/trufflesecurity/trufflehog/v3/pkg/engine/defaults"
	"github.com/wandb/parallel"
)

// truffleHogPass runs the TruffleHog default detectors over the added
// lines, grouped per file so findings keep their file hint. Unverified hits
// stay at MEDIUM; verified credentials are HIGH.
func (s *DiffScanner) truffleHogPass(ctx context.Context, added []AddedLine) []Finding {
	byFile := map[string][]string{}
	order := []string{}
	for _, line := range added {
		if _, ok := byFile[line.FileHint]; !ok {
			order = append(order, line.FileHint)
		}
		byFile[line.FileHint] = append(byFile[line.FileHint], line.Text)
	}

	findings := []Finding{}
	for _, fileHint := range order {
		text := []byte(strings.Join(byFile[fileHint], "\n"))

		trGroup := parallel.Collect[[]Finding](parallel.Limited(ctx, s.options.MaxScanGoRoutines))
		for _, detector := range defaults.DefaultDetectors() {
			trGroup.Go(func(ctx context.Context) ([]Finding, error) {
				findingsTr := []Finding{}
				trHits, err := detector.FromData(ctx, s.options.TruffleHogVerification, text)
				if err != nil {
					log.Error().Msg("TruffleHog Detector Failed " + err.Error())
					return []Finding{}, err
				}

				for _, result := range trHits {
					secret := result.Raw
					if len(result.RawV2) > 0 {
						secret = result.RawV2
					}

					confidence := gate.ConfidenceMedium
					description := result.DetectorType.String() + " (unverified)"
					if result.Verified {
						confidence = gate.ConfidenceHigh
						description = result.DetectorType.String() + " (verified)"
					}

					findingsTr = append(findingsTr, Finding{
						SecretFinding: gate.SecretFinding{
							PatternID:   "trufflehog-" + strings.ToLower(result.DetectorType.String()),
							Description: description,
							FileHint:    fileHint,
							Confidence:  confidence,
						},
						Value: maskValue(cleanHitLine(string(secret))),
					})
				}
				return findingsTr, nil
			})
		}

		resultsTr, err := trGroup.Wait()
		if err != nil {
			log.Error().Stack().Err(err).Msg("Failed waiting for trufflehog parallel hit detection")
		}

		findings = slices.Concat(findings, slices.Concat(resultsTr...))
	}

	return findings
}
