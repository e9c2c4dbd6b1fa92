package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"voice-nav/internal/domain"
)

var (
	ErrInvalidTransition = errors.New("invalid screen transition")
	ErrEmptyDestination  = errors.New("empty destination")
)

// Services are the collaborators the navigator wires into its screens.
type Services struct {
	Live     LiveConnector
	Capture  AudioCapture
	Resolver RouteResolver
	Speech   SpeechSynthesizer
	Player   AudioPlayer
	Locator  LocationProvider
	Maps     MapsProvider
	Notifier Notifier
}

// HomeScreen is one mounted instance of the home screen.
type HomeScreen struct {
	voice    *VoiceController
	location *LocationCell
}

func (h *HomeScreen) Voice() *VoiceController {
	return h.voice
}

func (h *HomeScreen) Location() *LocationCell {
	return h.location
}

// View is a snapshot of what the app currently shows.
type View struct {
	Screen    domain.Screen        `json:"screen"`
	Status    string               `json:"status,omitempty"`
	Listening bool                 `json:"listening"`
	Session   domain.SessionState  `json:"session,omitempty"`
	Route     *domain.RouteDetails `json:"route,omitempty"`
	Headline  string               `json:"headline,omitempty"`
	Subtitle  string               `json:"subtitle,omitempty"`
	Playing   bool                 `json:"playing"`
	Profile   []domain.ProfileItem `json:"profile,omitempty"`
}

// Navigator sequences the start, home, map and profile screens and threads
// the resolved route between them.
type Navigator struct {
	ctx      context.Context
	svc      Services
	renderer *MapRenderer
	opts     domain.PositionOptions
	logger   *slog.Logger

	mu     sync.Mutex
	screen domain.Screen
	route  *domain.RouteDetails
	home   *HomeScreen
	mapScr *MapScreen
	cancel context.CancelFunc
}

// NewNavigator builds the state machine in the start screen. ctx bounds every
// background operation the screens start.
func NewNavigator(ctx context.Context, svc Services, logger *slog.Logger) *Navigator {
	if svc.Notifier == nil {
		svc.Notifier = &NoopNotifier{}
	}
	var renderer *MapRenderer
	if svc.Maps != nil {
		renderer = NewMapRenderer(svc.Maps, logger.With("component", "map"))
	}
	return &Navigator{
		ctx:      ctx,
		svc:      svc,
		renderer: renderer,
		opts:     domain.DefaultPositionOptions(),
		logger:   logger,
		screen:   domain.ScreenStart,
	}
}

// Start moves from the start screen to home.
func (n *Navigator) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current() != domain.ScreenStart {
		return n.invalid("start")
	}
	n.enterHome()
	return nil
}

// ShowProfile moves from home to the profile screen.
func (n *Navigator) ShowProfile() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current() != domain.ScreenHome {
		return n.invalid("profile")
	}
	n.leave()
	n.screen = domain.ScreenProfile
	n.logger.Info("screen changed", "screen", n.screen)
	return nil
}

// Back returns to home from the map or profile screen, clearing the route.
func (n *Navigator) Back() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.current() {
	case domain.ScreenMap, domain.ScreenProfile:
	default:
		return n.invalid("back")
	}
	n.route = nil
	n.enterHome()
	return nil
}

// Navigate moves from home to the map screen carrying route.
func (n *Navigator) Navigate(route domain.RouteDetails) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.navigateLocked(route)
}

func (n *Navigator) navigateLocked(route domain.RouteDetails) error {
	if n.current() != domain.ScreenHome {
		return n.invalid("navigate")
	}
	n.leave()

	n.route = &route
	ctx, cancel := context.WithCancel(n.ctx)
	n.cancel = cancel
	location := ResolveLocation(ctx, n.svc.Locator, n.opts, n.logger.With("screen", domain.ScreenMap))
	n.mapScr = newMapScreen(ctx, route, location, n.renderer, n.svc.Speech, n.svc.Player,
		n.logger.With("screen", domain.ScreenMap))
	n.screen = domain.ScreenMap

	n.logger.Info("screen changed",
		"screen", n.screen,
		"destination", route.Destination,
		"duration", route.Duration,
		"distance", route.Distance,
	)

	go n.notifyRoute(route)
	return nil
}

// ToggleListening starts or stops the home screen's voice session.
func (n *Navigator) ToggleListening() error {
	n.mu.Lock()
	if n.current() != domain.ScreenHome {
		n.mu.Unlock()
		return n.invalid("listen")
	}
	voice := n.home.voice
	n.mu.Unlock()

	return voice.StartListening(n.ctx)
}

// SubmitDestination resolves a typed destination the same way as a spoken one.
func (n *Navigator) SubmitDestination(ctx context.Context, text string) error {
	n.mu.Lock()
	if n.current() != domain.ScreenHome {
		n.mu.Unlock()
		return n.invalid("destination")
	}
	home := n.home
	n.mu.Unlock()

	text = strings.TrimSpace(text)
	if text == "" {
		home.voice.SetStatus(StatusNothingHeard)
		return ErrEmptyDestination
	}

	home.voice.SetStatus(StatusFindingRoute)
	return n.resolve(ctx, home, text)
}

// MapScreen returns the mounted map screen.
func (n *Navigator) MapScreen() (*MapScreen, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current() != domain.ScreenMap {
		return nil, fmt.Errorf("%w: not on the map screen", ErrInvalidTransition)
	}
	return n.mapScr, nil
}

// Home returns the mounted home screen.
func (n *Navigator) Home() (*HomeScreen, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current() != domain.ScreenHome {
		return nil, fmt.Errorf("%w: not on the home screen", ErrInvalidTransition)
	}
	return n.home, nil
}

func (n *Navigator) Screen() domain.Screen {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current()
}

func (n *Navigator) View() View {
	n.mu.Lock()
	defer n.mu.Unlock()

	view := View{Screen: n.current()}
	switch view.Screen {
	case domain.ScreenHome:
		view.Status = n.home.voice.Status()
		view.Session = n.home.voice.State()
		view.Listening = view.Session != domain.SessionIdle
	case domain.ScreenMap:
		route := n.mapScr.Route()
		view.Route = &route
		view.Headline = route.Headline()
		view.Subtitle = route.Subtitle()
		view.Playing = n.mapScr.Playing()
	case domain.ScreenProfile:
		view.Profile = domain.ProfileItems
	}
	return view
}

// Close stops everything the mounted screen owns.
func (n *Navigator) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.leave()
}

// current returns the screen to render. A map screen without a route falls
// back to home.
func (n *Navigator) current() domain.Screen {
	if n.screen == domain.ScreenMap && (n.route == nil || n.mapScr == nil) {
		n.logger.Warn("map screen without route, showing home")
		n.route = nil
		n.enterHome()
	}
	if n.screen == domain.ScreenHome && n.home == nil {
		n.enterHome()
	}
	return n.screen
}

func (n *Navigator) invalid(action string) error {
	n.logger.Warn("ignoring screen action", "action", action, "screen", n.screen)
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, n.screen)
}

func (n *Navigator) enterHome() {
	n.leave()

	ctx, cancel := context.WithCancel(n.ctx)
	n.cancel = cancel

	logger := n.logger.With("screen", domain.ScreenHome)
	home := &HomeScreen{
		location: ResolveLocation(ctx, n.svc.Locator, n.opts, logger),
	}
	home.voice = NewVoiceController(n.svc.Live, n.svc.Capture, func(ctx context.Context, text string) {
		if err := n.resolve(ctx, home, text); err != nil {
			logger.Warn("navigation after voice turn", "error", err)
		}
	}, logger.With("component", "voice"))

	n.home = home
	n.screen = domain.ScreenHome
	n.logger.Info("screen changed", "screen", n.screen)
}

// leave unmounts the current screen.
func (n *Navigator) leave() {
	if n.home != nil {
		n.home.voice.StopListening()
		n.home = nil
	}
	n.mapScr = nil
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
}

func (n *Navigator) resolve(ctx context.Context, home *HomeScreen, text string) error {
	location, _, _ := home.location.Peek()

	n.logger.Info("resolving route", "destination", text, "has_location", location != nil)
	route := n.svc.Resolver.GetDirections(ctx, text, location)

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.home != home {
		return fmt.Errorf("%w: home screen left before route resolved", ErrInvalidTransition)
	}
	return n.navigateLocked(route)
}

func (n *Navigator) notifyRoute(route domain.RouteDetails) {
	msg := fmt.Sprintf("Navigating to %s: %s", route.Destination, route.Headline())
	if err := n.svc.Notifier.Notify(n.ctx, msg); err != nil {
		n.logger.Error("notifying route", "error", err)
	}
}
