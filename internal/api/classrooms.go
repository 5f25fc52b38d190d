package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rollcall/internal/apperr"
	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/directory"
)

func (s *Server) listClassrooms(c *gin.Context) {
	list, err := s.dir.ListClassrooms(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if list == nil {
		list = []directory.Classroom{}
	}
	respond(c, http.StatusOK, gin.H{"classrooms": list})
}

func (s *Server) createClassroom(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, apperr.Invalid("malformed body: %v", err))
		return
	}
	in := directory.NewClassroom{Name: req.Name}
	if userID, ok := auth.UserID(c); ok {
		in.TeacherID = uuid.NullUUID{UUID: userID, Valid: true}
	}
	classroom, err := s.dir.CreateClassroom(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"classroom": classroom})
}

func (s *Server) getClassroom(c *gin.Context) {
	id, err := attendance.ParseID("classroom", c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	classroom, err := s.dir.GetClassroom(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"classroom": classroom})
}

func (s *Server) listStudents(c *gin.Context) {
	id, err := attendance.ParseID("classroom", c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	students, err := s.dir.ListStudents(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if students == nil {
		students = []directory.Student{}
	}
	respond(c, http.StatusOK, gin.H{"students": students})
}

func (s *Server) addStudent(c *gin.Context) {
	id, err := attendance.ParseID("classroom", c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	var req struct {
		Name       string `json:"name"`
		RollNumber string `json:"roll_number"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, apperr.Invalid("malformed body: %v", err))
		return
	}
	student, err := s.dir.AddStudent(c.Request.Context(), directory.NewStudent{
		ClassroomID: id,
		Name:        req.Name,
		RollNumber:  req.RollNumber,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"student": student})
}
