package MHD2D

import (
	"fmt"
	"math"
	"time"

	"github.com/notargets/gomhd/CG2D"
	"github.com/notargets/gomhd/InputParameters"
	"github.com/notargets/gomhd/utils"
)

var (
	rk4a = []float64{
		0.0,
		-567301805773.0 / 1357537059087.0,
		-2404267990393.0 / 2016746695238.0,
		-3550918686646.0 / 2091501179385.0,
		-1275806237668.0 / 842570457699.0,
	}
	rk4b = []float64{
		1432997174477.0 / 9575080441755.0,
		5161836677717.0 / 13612068292357.0,
		1720146321549.0 / 2090206949498.0,
		3134564353537.0 / 4481467310338.0,
		2277821191437.0 / 14882151754819.0,
	}
)

// MHD drives the reduced resistive MHD model on a structured triangulation
// of [0,XMax] x [0,YMax] with homogeneous Dirichlet conditions on all four
// sides, stepped either explicitly (low-storage RK4) or by backward Euler.
type MHD struct {
	ip   *InputParameters.MHDParameters
	Mesh *CG2D.Mesh
	Fes  *CG2D.FESpace
	Op   *ResistiveMHDOperator
	Vx   utils.Vector
	Time float64
}

func NewMHD(ip *InputParameters.MHDParameters) (c *MHD, err error) {
	if err = ip.Validate(); err != nil {
		return nil, err
	}
	c = &MHD{
		ip:   ip,
		Mesh: CG2D.SimpleMeshSquare(0, ip.XMax, 0, ip.YMax, ip.Nx, ip.Ny),
	}
	c.Fes = CG2D.NewFESpace(c.Mesh)
	essBdr := make([]bool, c.Mesh.NumBdrAttributes)
	for i := range essBdr {
		essBdr[i] = true
	}
	if c.Op, err = NewResistiveMHDOperator(c.Fes, essBdr, ip.Viscosity, ip.Resistivity, ip.UseICC); err != nil {
		return nil, err
	}

	// initial flux is a single harmonic of the box, vorticity starts at rest
	var (
		kx   = math.Pi / ip.XMax
		ky   = math.Pi / ip.YMax
		sc   = c.Fes.NDofs()
		amp  = ip.InitAmp
		psi0 = func(x, y float64) float64 { return amp * math.Sin(kx*x) * math.Sin(ky*y) }
	)
	c.Vx = utils.NewVector(3 * sc)
	c.Vx.Segment(sc, sc).CopyFrom(c.Fes.ProjectFunction(psi0))

	c.Op.SetJBdy(0)
	c.Op.SetInitialJ(func(x, y float64) float64 {
		return -(kx*kx + ky*ky) * psi0(x, y) // the Laplacian of the initial flux
	})
	if ip.EFieldAmp != 0 {
		c.Op.SetRHSEfield(func(x, y float64) float64 { return ip.EFieldAmp })
	}
	if err = c.Op.UpdatePhi(c.Vx); err != nil {
		return nil, err
	}
	return
}

func (c *MHD) Run(showGraph bool, graphDelay ...time.Duration) error {
	var (
		ip     = c.ip
		sc     = c.Fes.NDofs()
		Nsteps = int(math.Ceil(ip.FinalTime / ip.Dt))
		dt     = ip.FinalTime / float64(Nsteps)
		logFrequency = ip.LogFrequency
		lc     *utils.LineChart
	)
	if logFrequency <= 0 {
		logFrequency = 50
	}
	if showGraph {
		lc = utils.NewLineChart(1920, 1280, 0, ip.XMax, -1.2*ip.InitAmp, 1.2*ip.InitAmp)
	}
	fmt.Printf("FinalTime = %8.4f, Nsteps = %d, dt = %8.6f, dofs = %d\n",
		ip.FinalTime, Nsteps, dt, 3*sc)

	var (
		resid = utils.NewVector(3 * sc)
		rhs   = utils.NewVector(3 * sc)
		k     = utils.NewVector(3 * sc)
	)
	for tstep := 0; tstep < Nsteps; tstep++ {
		if showGraph {
			x, f := c.midlineFlux()
			lc.Plot(delayOf(graphDelay), x, f, 0.7, "Psi")
		}
		if ip.ImplicitSolver {
			if err := c.Op.ImplicitSolve(dt, c.Vx, k); err != nil {
				return fmt.Errorf("step %d, time %v: %w", tstep, c.Time, err)
			}
			c.Vx.AddScaled(dt, k)
			if err := c.Op.UpdatePhi(c.Vx); err != nil {
				return fmt.Errorf("step %d, time %v: %w", tstep, c.Time, err)
			}
		} else {
			for INTRK := 0; INTRK < 5; INTRK++ {
				if err := c.Op.UpdatePhi(c.Vx); err != nil {
					return fmt.Errorf("step %d, time %v: %w", tstep, c.Time, err)
				}
				if err := c.Op.Mult(c.Vx, rhs); err != nil {
					return fmt.Errorf("step %d, time %v: %w", tstep, c.Time, err)
				}
				resid.Scale(rk4a[INTRK]).AddScaled(dt, rhs)
				c.Vx.AddScaled(rk4b[INTRK], resid)
			}
			if err := c.Op.UpdatePhi(c.Vx); err != nil {
				return fmt.Errorf("step %d, time %v: %w", tstep, c.Time, err)
			}
		}
		c.Time += dt
		if tstep%logFrequency == 0 || tstep == Nsteps-1 {
			psi := c.Vx.Segment(sc, sc)
			fmt.Printf("Time = %8.4f, step %d, energy = %12.6e, psi in [%8.5f, %8.5f]\n",
				c.Time, tstep, c.Op.Energy(c.Vx), psi.Min(), psi.Max())
		}
	}
	return nil
}

// midlineFlux samples the flux along the horizontal mid-row of the
// structured mesh for plotting
func (c *MHD) midlineFlux() (x, f []float64) {
	var (
		sc  = c.Fes.NDofs()
		psi = c.Vx.Segment(sc, sc)
		nvx = c.ip.Nx + 1
		j   = c.ip.Ny / 2
	)
	x = make([]float64, nvx)
	f = make([]float64, nvx)
	for i := 0; i < nvx; i++ {
		vid := i + nvx*j
		x[i] = c.Mesh.VX.AtVec(vid)
		f[i] = psi.AtVec(vid)
	}
	return
}

func delayOf(graphDelay []time.Duration) time.Duration {
	if len(graphDelay) != 0 {
		return graphDelay[0]
	}
	return 0
}
