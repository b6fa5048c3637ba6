package prefabs

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"

	"github.com/milk9111/survivor/ai"
	"github.com/milk9111/survivor/ecs"
	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"
)

var ErrInvalidSpec = errors.New("prefabs: invalid spec")

// DefaultSpec is the survival spec loaded when no other name is given.
const DefaultSpec = "survival.yaml"

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// SurvivalSpec configures a whole run: the player, the spawner and the
// ordered unit prototypes. A unit's position in Units is its pool type index.
type SurvivalSpec struct {
	TickRate int         `yaml:"tick_rate"`
	Seed     uint64      `yaml:"seed"`
	World    WorldSpec   `yaml:"world"`
	Player   PlayerSpec  `yaml:"player"`
	Spawner  SpawnerSpec `yaml:"spawner"`
	Units    []UnitSpec  `yaml:"units"`
}

type WorldSpec struct {
	WrapDistance float64 `yaml:"wrap_distance"`
}

type PlayerSpec struct {
	Speed  float64    `yaml:"speed"`
	Health int        `yaml:"health"`
	Radius float64    `yaml:"radius"`
	Color  *YAMLColor `yaml:"color"`
}

type SpawnerSpec struct {
	Interval   time.Duration `yaml:"interval"`
	RingRadius float64       `yaml:"ring_radius"`
	Script     string        `yaml:"script"`
	MaxActive  int           `yaml:"max_active"`
}

type UnitSpec struct {
	Name      string        `yaml:"name"`
	Role      Role          `yaml:"role"`
	Health    int           `yaml:"health"`
	Radius    float64       `yaml:"radius"`
	Mass      float64       `yaml:"mass"`
	MaxActive int           `yaml:"max_active"`
	Color     *YAMLColor    `yaml:"color"`
	Knockback KnockbackSpec `yaml:"knockback"`
	AI        AISpec        `yaml:"ai"`
}

type KnockbackSpec struct {
	Power    float64       `yaml:"power"`
	Duration time.Duration `yaml:"duration"`
}

type AISpec struct {
	Speed            float64       `yaml:"speed"`
	DetectionRadius  float64       `yaml:"detection_radius"`
	AttackDamage     int           `yaml:"attack_damage"`
	AttackCooldown   time.Duration `yaml:"attack_cooldown"`
	RetargetInterval time.Duration `yaml:"retarget_interval"`
	TargetLayers     LayerList     `yaml:"target_layers"`
}

// AgentConfig converts the ai block into the agent's runtime config.
func (s AISpec) AgentConfig() ai.Config {
	return ai.Config{
		Speed:            s.Speed,
		DetectionRadius:  s.DetectionRadius,
		AttackDamage:     s.AttackDamage,
		AttackCooldown:   s.AttackCooldown,
		RetargetInterval: s.RetargetInterval,
		TargetLayer:      s.TargetLayers.Mask(),
	}
}

// Role decides which collision layer a unit lives on.
type Role int

const (
	RoleEnemy Role = iota
	RoleAlly
)

func (r Role) String() string {
	switch r {
	case RoleEnemy:
		return "enemy"
	case RoleAlly:
		return "ally"
	default:
		return "role(" + strconv.Itoa(int(r)) + ")"
	}
}

// Layer returns the collision layer units of this role occupy.
func (r Role) Layer() ecs.Layer {
	if r == RoleAlly {
		return ecs.LayerAlly
	}
	return ecs.LayerEnemy
}

func (r *Role) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("role must be a string")
	}
	switch strings.ToLower(strings.TrimSpace(value.Value)) {
	case "enemy":
		*r = RoleEnemy
	case "ally":
		*r = RoleAlly
	default:
		return fmt.Errorf("unknown role %q", value.Value)
	}
	return nil
}

// LayerList is a list of layer names decoded into their bits.
type LayerList []ecs.Layer

func (l LayerList) Mask() ecs.Layer {
	var mask ecs.Layer
	for _, layer := range l {
		mask |= layer
	}
	return mask
}

func (l *LayerList) UnmarshalYAML(value *yaml.Node) error {
	var names []string
	switch value.Kind {
	case yaml.ScalarNode:
		names = []string{value.Value}
	case yaml.SequenceNode:
		if err := value.Decode(&names); err != nil {
			return err
		}
	default:
		return fmt.Errorf("target layers must be a name or a list of names")
	}

	out := make(LayerList, 0, len(names))
	for _, name := range names {
		layer, err := ecs.ParseLayer(name)
		if err != nil {
			return err
		}
		out = append(out, layer)
	}
	*l = out
	return nil
}

// ParseSurvivalSpec decodes and validates a survival spec.
func ParseSurvivalSpec(data []byte) (*SurvivalSpec, error) {
	var spec SurvivalSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("prefabs: unmarshal survival spec: %w", err)
	}
	spec.applyDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// LoadSurvivalSpec loads name through the disk override and the embedded
// defaults.
func LoadSurvivalSpec(name string) (*SurvivalSpec, error) {
	if name == "" {
		name = DefaultSpec
	}
	data, err := Load(name)
	if err != nil {
		return nil, fmt.Errorf("prefabs: load %s: %w", name, err)
	}
	spec, err := ParseSurvivalSpec(data)
	if err != nil {
		return nil, fmt.Errorf("prefabs: %s: %w", name, err)
	}
	return spec, nil
}

func (s *SurvivalSpec) applyDefaults() {
	if s.TickRate <= 0 {
		s.TickRate = 60
	}
	if s.Player.Radius <= 0 {
		s.Player.Radius = 0.5
	}
	for i := range s.Units {
		u := &s.Units[i]
		if u.Radius <= 0 {
			u.Radius = 0.5
		}
		if u.Mass <= 0 {
			u.Mass = 1
		}
	}
}

// Step is the fixed simulation step derived from the tick rate.
func (s *SurvivalSpec) Step() time.Duration {
	if s == nil || s.TickRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(s.TickRate)
}

// Validate checks what the runtime cannot recover from. Agent config errors
// are left to the agent, which disables itself and logs once.
func (s *SurvivalSpec) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil spec", ErrInvalidSpec)
	}
	if len(s.Units) == 0 {
		return fmt.Errorf("%w: no units", ErrInvalidSpec)
	}
	if s.Player.Health <= 0 {
		return fmt.Errorf("%w: player health must be positive", ErrInvalidSpec)
	}
	if s.Spawner.Interval < 0 {
		return fmt.Errorf("%w: negative spawn interval %s", ErrInvalidSpec, s.Spawner.Interval)
	}
	if s.World.WrapDistance < 0 {
		return fmt.Errorf("%w: negative wrap distance", ErrInvalidSpec)
	}

	seen := make(map[string]int, len(s.Units))
	for i, u := range s.Units {
		name := strings.TrimSpace(u.Name)
		if name == "" {
			return fmt.Errorf("%w: unit %d has no name", ErrInvalidSpec, i)
		}
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("%w: unit %q at %d duplicates %d", ErrInvalidSpec, name, i, prev)
		}
		seen[name] = i
		if u.Health <= 0 {
			return fmt.Errorf("%w: unit %q health must be positive", ErrInvalidSpec, name)
		}
		if u.MaxActive < 0 {
			return fmt.Errorf("%w: unit %q negative max_active", ErrInvalidSpec, name)
		}
	}
	return nil
}

// UnitIndex returns the pool type index of the named unit.
func (s *SurvivalSpec) UnitIndex(name string) (int, bool) {
	if s == nil {
		return 0, false
	}
	for i, u := range s.Units {
		if u.Name == name {
			return i, true
		}
	}
	return 0, false
}

// YAMLColor accepts #rrggbb, #rrggbbaa or an SVG color name.
type YAMLColor struct {
	color.Color
}

// Or returns c, or fallback when c is unset.
func (c *YAMLColor) Or(fallback color.Color) color.Color {
	if c == nil || c.Color == nil {
		return fallback
	}
	return c.Color
}

func (c *YAMLColor) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("color must be a string")
	}

	raw := strings.TrimSpace(value.Value)
	if named, ok := colornames.Map[strings.ToLower(raw)]; ok {
		c.Color = named
		return nil
	}

	s := strings.TrimPrefix(raw, "#")
	if len(s) != 6 && len(s) != 8 {
		return fmt.Errorf("invalid color format: %s", value.Value)
	}

	parse := func(start int) (uint8, error) {
		v, err := strconv.ParseUint(s[start:start+2], 16, 8)
		return uint8(v), err
	}

	var rgba [4]uint8
	rgba[3] = 255
	for i := 0; i < len(s)/2; i++ {
		v, err := parse(i * 2)
		if err != nil {
			return err
		}
		rgba[i] = v
	}

	c.Color = color.NRGBA{R: rgba[0], G: rgba[1], B: rgba[2], A: rgba[3]}
	return nil
}
