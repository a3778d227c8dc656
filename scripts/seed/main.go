// Command seed loads a small demo dataset: one institution with rooms, a group
// hierarchy, courses, activities and an admin account. Intended for local
// development against an empty database.
package main

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bogdanivan12/odes/internal/dto"
	"github.com/bogdanivan12/odes/internal/models"
	"github.com/bogdanivan12/odes/internal/repository"
	"github.com/bogdanivan12/odes/internal/service"
	"github.com/bogdanivan12/odes/pkg/config"
	"github.com/bogdanivan12/odes/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close() //nolint:errcheck

	logr := zap.NewNop()
	validate := validator.New()

	institutionRepo := repository.NewInstitutionRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	userRepo := repository.NewUserRepository(db)

	institutionSvc := service.NewInstitutionService(institutionRepo, nil, validate, logr)
	roomSvc := service.NewRoomService(roomRepo, institutionRepo, validate, logr)
	groupSvc := service.NewGroupService(groupRepo, institutionRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, institutionRepo, validate, logr)
	activitySvc := service.NewActivityService(activityRepo, courseRepo, groupRepo, userRepo, validate, logr)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	institution, err := institutionSvc.Create(ctx, dto.CreateInstitutionRequest{
		Name: "Demo University",
		TimeGridConfig: dto.TimeGridRequest{
			Weeks:                      14,
			Days:                       5,
			TimeslotsPerDay:            12,
			MaxTimeslotsPerDayPerGroup: 8,
		},
	})
	if err != nil {
		log.Fatalf("seed institution: %v", err)
	}
	log.Printf("institution %s (%s)", institution.Name, institution.ID)

	rooms := []dto.CreateRoomRequest{
		{Name: "A101", Capacity: 120, Features: []string{"projector"}},
		{Name: "A102", Capacity: 60, Features: []string{"projector", "whiteboard"}},
		{Name: "Lab 1", Capacity: 30, Features: []string{"computers"}},
		{Name: "Lab 2", Capacity: 30, Features: []string{"computers"}},
	}
	for _, req := range rooms {
		if _, err := roomSvc.Create(ctx, institution.ID, req); err != nil {
			log.Fatalf("seed room %s: %v", req.Name, err)
		}
	}

	series, err := groupSvc.Create(ctx, institution.ID, dto.CreateGroupRequest{Name: "CS Year 1"})
	if err != nil {
		log.Fatalf("seed series: %v", err)
	}
	groupA, err := groupSvc.Create(ctx, institution.ID, dto.CreateGroupRequest{Name: "Group A", ParentGroupID: &series.ID})
	if err != nil {
		log.Fatalf("seed group: %v", err)
	}
	groupB, err := groupSvc.Create(ctx, institution.ID, dto.CreateGroupRequest{Name: "Group B", ParentGroupID: &series.ID})
	if err != nil {
		log.Fatalf("seed group: %v", err)
	}

	professor := seedUser(ctx, userRepo, "professor@demo.local", "Ada Lovelace")
	grantRole(ctx, userRepo, professor, institution.ID, models.RoleProfessor)

	admin := seedUser(ctx, userRepo, "admin@demo.local", "Demo Admin")
	grantRole(ctx, userRepo, admin, institution.ID, models.RoleAdmin)

	algorithms, err := courseSvc.Create(ctx, institution.ID, dto.CreateCourseRequest{Name: "Algorithms"})
	if err != nil {
		log.Fatalf("seed course: %v", err)
	}

	activities := []dto.CreateActivityRequest{
		{
			CourseID:      algorithms.ID,
			ActivityType:  models.ActivityTypeCourse,
			DurationSlots: 2,
			GroupID:       series.ID,
			ProfessorID:   &professor.ID,
			Frequency:     models.FrequencyWeekly,
		},
		{
			CourseID:             algorithms.ID,
			ActivityType:         models.ActivityTypeLaboratory,
			DurationSlots:        2,
			GroupID:              groupA.ID,
			ProfessorID:          &professor.ID,
			RequiredRoomFeatures: []string{"computers"},
			Frequency:            models.FrequencyBiweeklyOdd,
		},
		{
			CourseID:             algorithms.ID,
			ActivityType:         models.ActivityTypeLaboratory,
			DurationSlots:        2,
			GroupID:              groupB.ID,
			ProfessorID:          &professor.ID,
			RequiredRoomFeatures: []string{"computers"},
			Frequency:            models.FrequencyBiweeklyEven,
		},
	}
	for i, req := range activities {
		if _, err := activitySvc.Create(ctx, institution.ID, req); err != nil {
			log.Fatalf("seed activity %d: %v", i, err)
		}
	}

	log.Printf("seed complete: admin@demo.local / password")
}

func seedUser(ctx context.Context, users *repository.UserRepository, email, name string) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		Email:          email,
		FullName:       name,
		HashedPassword: string(hash),
		UserRoles:      models.RoleMap{},
	}
	if err := users.Create(ctx, user); err != nil {
		log.Fatalf("seed user %s: %v", email, err)
	}
	return user
}

func grantRole(ctx context.Context, users *repository.UserRepository, user *models.User, institutionID string, role models.UserRole) {
	user.UserRoles = user.UserRoles.Grant(institutionID, role)
	if err := users.Update(ctx, user); err != nil {
		log.Fatalf("grant role: %v", err)
	}
}
