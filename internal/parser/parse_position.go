package parser

import (
	"fmt"
	"strings"

	"github.com/emomap/engine/internal/geo"
	"github.com/emomap/engine/internal/util"
	"github.com/emomap/engine/pkg/core"
)

// ParsePosition accepts ["lat", "lon"], ["x", "y", "z"] or a single "lat,lon" / "x,y,z" argument.
func (p *Parser) ParsePosition(args []string) (core.Vec3, error) {
	if err := requireArgs(args, 1, ":POSITION:"); err != nil {
		return core.Vec3{}, err
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = util.TrimQuotes(a)
	}
	v, err := geo.ParsePosition(strings.Join(parts, ","))
	if err != nil {
		return core.Vec3{}, fmt.Errorf("error parsing position %v: %w", args, err)
	}
	return v, nil
}

// RouteRequest is a parsed :ROUTE: command.
// User is nil when the route should start from the last known position.
type RouteRequest struct {
	PlaceID string
	User    *core.Vec3
}

// ParseRoute parses [placeId] or [placeId, position...].
func (p *Parser) ParseRoute(args []string) (RouteRequest, error) {
	if err := requireArgs(args, 1, ":ROUTE:"); err != nil {
		return RouteRequest{}, err
	}
	req := RouteRequest{PlaceID: util.TrimQuotes(args[0])}
	if req.PlaceID == "" {
		return RouteRequest{}, fmt.Errorf("%w: :ROUTE: place id is empty", ErrMissingArgs)
	}
	if len(args) > 1 {
		v, err := p.ParsePosition(args[1:])
		if err != nil {
			return RouteRequest{}, err
		}
		req.User = &v
	}
	return req, nil
}

// ParseID returns the single id argument of a command such as :PLACE:DELETE:.
func (p *Parser) ParseID(args []string, command string) (string, error) {
	if err := requireArgs(args, 1, command); err != nil {
		return "", err
	}
	id := util.TrimQuotes(args[0])
	if id == "" {
		return "", fmt.Errorf("%w: %s id is empty", ErrMissingArgs, command)
	}
	return id, nil
}

// ParseVolume parses a master volume in [0, 1]. Out-of-range values are an error.
func (p *Parser) ParseVolume(args []string) (float64, error) {
	if err := requireArgs(args, 1, ":AUDIO:VOLUME:"); err != nil {
		return 0, err
	}
	v, err := util.ParseFloatArg(args[0])
	if err != nil {
		return 0, err
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("volume %.3f outside [0, 1]", v)
	}
	return v, nil
}
