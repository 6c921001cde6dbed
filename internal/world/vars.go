package world

import (
	"github.com/l1jgo/worldstate/internal/core/ecs"
	"github.com/l1jgo/worldstate/internal/core/vec"
	"github.com/l1jgo/worldstate/internal/field"
)

// Vars are the fields every entity carries regardless of kind.
type Vars struct {
	Classname  string
	GlobalName string
	TargetName string
	Target     string
	NetName    string
	Model      string

	Origin    vec.Vec3
	Angles    vec.Vec3
	Velocity  vec.Vec3
	AVelocity vec.Vec3
	Mins      vec.Vec3
	Maxs      vec.Vec3
	Size      vec.Vec3
	AbsMin    vec.Vec3
	AbsMax    vec.Vec3

	MoveType   MoveType
	Solid      Solid
	Flags      Flags
	SpawnFlags int32
	Effects    int32

	NextThink float64
	LTime     float64

	Health    float64
	MaxHealth float64
	Speed     float64
	Wait      float64

	Owner ecs.Handle
	Enemy ecs.Handle

	Think   string
	Touch   string
	Use     string
	Blocked string
}

// VarsTable describes Vars. Classname, global name and model are global
// fields: an entity overlaid from another level keeps its own.
var VarsTable = field.NewTable("ENTVARS",
	field.String("classname", func(v *Vars) *string { return &v.Classname }, field.FlagGlobal),
	field.String("globalname", func(v *Vars) *string { return &v.GlobalName }, field.FlagGlobal|field.FlagKeyValue),
	field.String("targetname", func(v *Vars) *string { return &v.TargetName }, field.FlagKeyValue),
	field.String("target", func(v *Vars) *string { return &v.Target }, field.FlagKeyValue),
	field.String("netname", func(v *Vars) *string { return &v.NetName }, field.FlagKeyValue),
	field.String("model", func(v *Vars) *string { return &v.Model }, field.FlagGlobal|field.FlagKeyValue),

	field.Position("origin", func(v *Vars) *vec.Vec3 { return &v.Origin }, field.FlagKeyValue),
	field.Vector("angles", func(v *Vars) *vec.Vec3 { return &v.Angles }, field.FlagKeyValue),
	field.Vector("velocity", func(v *Vars) *vec.Vec3 { return &v.Velocity }),
	field.Vector("avelocity", func(v *Vars) *vec.Vec3 { return &v.AVelocity }),
	field.Vector("mins", func(v *Vars) *vec.Vec3 { return &v.Mins }, field.FlagKeyValue),
	field.Vector("maxs", func(v *Vars) *vec.Vec3 { return &v.Maxs }, field.FlagKeyValue),
	field.Vector("size", func(v *Vars) *vec.Vec3 { return &v.Size }),
	field.Position("absmin", func(v *Vars) *vec.Vec3 { return &v.AbsMin }),
	field.Position("absmax", func(v *Vars) *vec.Vec3 { return &v.AbsMax }),

	field.Integer("movetype", func(v *Vars) *int32 { return (*int32)(&v.MoveType) }),
	field.Integer("solid", func(v *Vars) *int32 { return (*int32)(&v.Solid) }),
	field.Integer("flags", func(v *Vars) *int32 { return (*int32)(&v.Flags) }),
	field.Integer("spawnflags", func(v *Vars) *int32 { return &v.SpawnFlags }, field.FlagKeyValue),
	field.Integer("effects", func(v *Vars) *int32 { return &v.Effects }),

	field.Time("nextthink", func(v *Vars) *float64 { return &v.NextThink }),
	field.Time("ltime", func(v *Vars) *float64 { return &v.LTime }),

	field.Float("health", func(v *Vars) *float64 { return &v.Health }, field.FlagKeyValue),
	field.Float("max_health", func(v *Vars) *float64 { return &v.MaxHealth }, field.FlagKeyValue),
	field.Float("speed", func(v *Vars) *float64 { return &v.Speed }, field.FlagKeyValue),
	field.Float("wait", func(v *Vars) *float64 { return &v.Wait }, field.FlagKeyValue),

	field.Entity("owner", func(v *Vars) *ecs.Handle { return &v.Owner }),
	field.Entity("enemy", func(v *Vars) *ecs.Handle { return &v.Enemy }),

	field.Function("think", func(v *Vars) *string { return &v.Think }),
	field.Function("touch", func(v *Vars) *string { return &v.Touch }),
	field.Function("use", func(v *Vars) *string { return &v.Use }),
	field.Function("blocked", func(v *Vars) *string { return &v.Blocked }),
)
