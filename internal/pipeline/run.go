package pipeline

import (
	"fmt"
	"strconv"

	"transient-finder/internal/alignment"
	"transient-finder/internal/candidate"
	"transient-finder/internal/diffimage"
	"transient-finder/internal/frame"
	"transient-finder/internal/render"
	"transient-finder/internal/score"
	"transient-finder/pkg/geometry"
)

// Run executes the full detection pipeline over one image pair: register the
// science frame against the reference, difference and clean, extract,
// score, and annotate. Run never panics; every failure comes back as a
// Result with Success=false and the stage that failed in Reason.
func Run(ref, sci *frame.Image, cfg Config, obs Observer) *Result {
	if obs == nil {
		obs = NullObserver{}
	}
	if err := cfg.Validate(); err != nil {
		obs.Errorf("configuration rejected: %v", err)
		return failed("config", err.Error())
	}
	if err := ref.Validate(); err != nil {
		return failed("input", err.Error())
	}
	if err := sci.Validate(); err != nil {
		return failed("input", err.Error())
	}

	// Stage 1: registration.
	alignRes, err := alignment.Align(ref, sci, cfg.alignOptions())
	if err != nil {
		return failed("alignment", err.Error())
	}
	obs.Debugf("alignment: %d/%d keypoints, %d correspondences, %d inliers (ratio %.2f)",
		alignRes.Stats.KeypointsRef, alignRes.Stats.KeypointsSci,
		alignRes.Stats.Correspondences, alignRes.Stats.Inliers, alignRes.Stats.InlierRatio)

	result := &Result{Alignment: alignRes}
	transform := alignRes.Transform
	if !alignRes.Success {
		if !cfg.FallbackIdentity {
			obs.Errorf("alignment failed: %s", alignRes.Reason)
			result.Reason = "alignment: " + alignRes.Reason
			return result
		}
		obs.Infof("alignment failed (%s), continuing with identity transform", alignRes.Reason)
		transform = geometry.IdentityTransform()
	}

	// Stage 2: difference and cleaning.
	dm, err := diffimage.Compute(ref, sci, transform, cfg.diffParams())
	if err != nil {
		result.Reason = "difference: " + err.Error()
		return result
	}
	result.Diff = dm
	if dm.AllZero {
		obs.Infof("difference is identically zero; no candidates")
	} else {
		obs.Debugf("difference: noise floor %.3f, sigma %.3f, peak %.3f",
			dm.NoiseFloor, dm.NoiseSigma, dm.Peak)
	}

	// Stage 3: extraction. Zero candidates is a valid outcome, not an error.
	cands, err := candidate.Extract(dm, cfg.extractParams())
	if err != nil {
		result.Reason = "extraction: " + err.Error()
		return result
	}
	obs.Infof("extracted %d candidates", len(cands))

	// Stage 4: scoring and partitioning.
	scoreParams := score.DefaultParams()
	scoreParams.Extract = cfg.extractParams()
	scorer, err := score.New(cfg.Scorer, scoreParams)
	if err != nil {
		result.Reason = "scoring: " + err.Error()
		return result
	}
	scored, err := scorer.Score(cands, dm)
	if err != nil {
		result.Reason = "scoring: " + err.Error()
		return result
	}
	result.Accepted, result.Rejected = score.Partition(scored, cfg.ReliabilityCutoff)
	obs.Infof("accepted %d of %d candidates at cutoff %.0f",
		len(result.Accepted), len(scored), cfg.ReliabilityCutoff)

	// Stage 5: artifacts.
	marked, err := render.Annotate(dm.Img, result.Accepted, cfg.markerParams())
	if err != nil {
		result.Reason = "annotation: " + err.Error()
		return result
	}
	result.Annotated = marked
	result.Catalog = buildCatalog(ref, cfg, result)

	result.Success = true
	return result
}

// buildCatalog assembles the catalog with the run parameters in its header.
func buildCatalog(ref *frame.Image, cfg Config, r *Result) *render.Catalog {
	cat := render.NewCatalog(ref.Width, ref.Height, r.Accepted)
	cat.Parameters["transform_class"] = cfg.TransformClass
	cat.Parameters["noise_sigma_multiplier"] = fmt.Sprintf("%g", cfg.NoiseSigmaMultiplier)
	cat.Parameters["min_candidate_area"] = strconv.Itoa(cfg.MinCandidateArea)
	cat.Parameters["reliability_cutoff"] = fmt.Sprintf("%g", cfg.ReliabilityCutoff)
	cat.Parameters["scorer"] = cfg.Scorer
	if r.Alignment != nil {
		cat.Parameters["alignment_success"] = strconv.FormatBool(r.Alignment.Success)
		cat.Parameters["alignment_inliers"] = strconv.Itoa(r.Alignment.Stats.Inliers)
	}
	return cat
}
